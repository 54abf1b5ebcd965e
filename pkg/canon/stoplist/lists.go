package stoplist

// English is a general English stopword list.
var English = []string{
	"a", "about", "above", "across", "after", "afterwards", "again", "against",
	"all", "almost", "alone", "along", "already", "also", "although", "always",
	"am", "among", "amongst", "amount", "an", "and", "another", "any", "anyhow",
	"anyone", "anything", "anyway", "anywhere", "are", "around", "as", "at",
	"back", "be", "became", "because", "become", "becomes", "becoming", "been",
	"before", "beforehand", "behind", "being", "below", "beside", "besides",
	"between", "beyond", "both", "bottom", "but", "by", "call", "can", "cannot",
	"could", "couldn", "did", "didn", "do", "does", "doesn", "doing", "done",
	"down", "due", "during", "each", "either", "else", "elsewhere", "enough",
	"etc", "even", "ever", "every", "everyone", "everything", "everywhere",
	"except", "few", "find", "first", "for", "former", "formerly", "found",
	"from", "front", "full", "further", "get", "give", "go", "had", "hadn",
	"has", "hasn", "have", "haven", "having", "he", "hence", "her", "here",
	"hereafter", "hereby", "herein", "hereupon", "hers", "herself", "him",
	"himself", "his", "how", "however", "i", "if", "in", "indeed", "into", "is",
	"isn", "it", "its", "itself", "just", "keep", "last", "latter", "latterly",
	"least", "less", "made", "many", "may", "me", "meanwhile", "might", "mine",
	"more", "moreover", "most", "mostly", "move", "much", "must", "my", "myself",
	"name", "namely", "neither", "never", "nevertheless", "next", "no", "nobody",
	"none", "noone", "nor", "not", "nothing", "now", "nowhere", "of", "off",
	"often", "on", "once", "one", "only", "onto", "or", "other", "others",
	"otherwise", "our", "ours", "ourselves", "out", "over", "own", "part", "per",
	"perhaps", "please", "put", "rather", "same", "see", "seem", "seemed",
	"seeming", "seems", "several", "she", "should", "shouldn", "show", "side",
	"since", "so", "some", "somehow", "someone", "something", "sometime",
	"sometimes", "somewhere", "still", "such", "take", "than", "that", "the",
	"their", "theirs", "them", "themselves", "then", "thence", "there",
	"thereafter", "thereby", "therefore", "therein", "thereupon", "these",
	"they", "this", "those", "though", "through", "throughout", "thru", "thus",
	"to", "together", "too", "top", "toward", "towards", "under", "until", "up",
	"upon", "us", "very", "via", "was", "wasn", "we", "well", "were", "weren",
	"what", "whatever", "when", "whence", "whenever", "where", "whereafter",
	"whereas", "whereby", "wherein", "whereupon", "wherever", "whether",
	"which", "while", "whither", "who", "whoever", "whole", "whom", "whose",
	"why", "will", "with", "within", "without", "won", "would", "wouldn", "yet",
	"you", "your", "yours", "yourself", "yourselves",
}

// Domain lists words that are frequent in astrophysics abstracts but carry
// no topical signal.
var Domain = []string{
	"et", "al", "figure", "using", "based", "data", "datum", "analysis",
	"result", "results", "show", "use", "used", "paper", "new", "present",
	"study", "scientific", "tool", "dataset", "mass", "alpha", "beta",
	"article", "start", "stark", "end", "like",
}
