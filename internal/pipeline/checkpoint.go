package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Checkpointer persists a labeled snapshot of pipeline state. Saves are
// best effort: a checkpoint that cannot be written must never fail the
// run it documents.
type Checkpointer interface {
	Save(label string, state any)
}

// JSONCheckpointer writes one timestamped JSON file per snapshot into a
// run directory. Files are write-only diagnostics; nothing reads them
// back.
type JSONCheckpointer struct {
	dir string
	log zerolog.Logger
	now func() time.Time
}

func NewJSONCheckpointer(dir string, log zerolog.Logger) *JSONCheckpointer {
	return &JSONCheckpointer{dir: dir, log: log, now: time.Now}
}

func (c *JSONCheckpointer) Save(label string, state any) {
	name := c.now().Format("20060102_150405") + "_" + label + ".json"
	path := filepath.Join(c.dir, name)
	if err := c.save(path, state); err != nil {
		c.log.Warn().Str("checkpoint", name).Err(err).Msg("checkpoint not written")
		return
	}
	c.log.Debug().Str("checkpoint", name).Msg("checkpoint written")
}

func (c *JSONCheckpointer) save(path string, state any) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
