package labels

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Brownie44l1/classify-api/internal/model"
)

const stage = "labels"

// Table maps class ids to names. It is read-only once loaded.
type Table struct {
	names []string
}

// Load reads a flat JSON array of strings from path.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, model.NewError(model.ErrLoad, stage, fmt.Errorf("failed to read labels: %w", err))
	}
	return Parse(data)
}

// Parse decodes a label table from raw JSON.
func Parse(data []byte) (Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var names []string
	if err := dec.Decode(&names); err != nil {
		return Table{}, model.NewError(model.ErrLoad, stage, fmt.Errorf("failed to parse labels: %w", err))
	}
	if dec.More() {
		return Table{}, model.Errorf(model.ErrLoad, stage, "trailing data after label array")
	}
	if names == nil {
		return Table{}, model.Errorf(model.ErrLoad, stage, "labels must be a JSON array")
	}
	if len(names) == 0 {
		return Table{}, model.Errorf(model.ErrLoad, stage, "label array is empty")
	}
	return Table{names: names}, nil
}

// New builds a table from names already in memory.
func New(names ...string) Table {
	return Table{names: append([]string(nil), names...)}
}

func (t Table) Len() int { return len(t.names) }

// Label returns the name of class id.
func (t Table) Label(id int) (string, error) {
	if id < 0 || id >= len(t.names) {
		return "", model.Errorf(model.ErrLabelIndex, stage,
			"class %d out of range for %d labels", id, len(t.names))
	}
	return t.names[id], nil
}
