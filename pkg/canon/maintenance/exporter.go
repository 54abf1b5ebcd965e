package maintenance

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cognicore/canon/pkg/canon/lexicon"
	"github.com/cognicore/canon/pkg/canon/store"
)

// MapWriter persists an exported canonical map (file, stdout, etc.).
type MapWriter interface {
	WriteMap(ctx context.Context, content string) error
}

// FileWriter writes exports to a path.
type FileWriter string

// WriteMap implements MapWriter.
func (f FileWriter) WriteMap(ctx context.Context, content string) error {
	return os.WriteFile(string(f), []byte(content), 0o644)
}

// MapExporter renders a run's canonical map as a lexicon YAML file, which
// can later be loaded as the cleaning lexicon.
type MapExporter struct {
	Writer MapWriter
}

// Export writes the canonical groups of run. Singleton groups are omitted.
func (e *MapExporter) Export(ctx context.Context, run store.Run) error {
	if e.Writer == nil {
		return fmt.Errorf("map exporter: nil writer")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# run %s: %d tokens, %d components\n", run.ID, len(run.Map), run.ComponentCount)
	if err := lexicon.FromMap(run.Map).WriteYAML(&b); err != nil {
		return err
	}
	return e.Writer.WriteMap(ctx, b.String())
}
