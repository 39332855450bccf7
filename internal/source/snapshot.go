package source

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
)

type format int

const (
	formatJSON format = iota
	formatYAML
)

// SnapshotFile reads rows exported as JSON or YAML: either an object with
// "headers" and "rows", or a bare array of rows.
type SnapshotFile struct {
	path   string
	format format
}

// Path implements File.
func (f SnapshotFile) Path() string { return f.path }

// Snapshot implements File.
func (f SnapshotFile) Snapshot(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return model.Snapshot{}, eris.Wrapf(err, "source: read %s", f.path)
	}
	if f.format == formatYAML {
		return DecodeYAML(data)
	}
	return DecodeJSON(data)
}

// DecodeJSON decodes a JSON snapshot.
func DecodeJSON(data []byte) (model.Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return model.Snapshot{}, ErrNoTable
	}

	var snap model.Snapshot
	if data[0] == '[' {
		if err := json.Unmarshal(data, &snap.Rows); err != nil {
			return model.Snapshot{}, eris.Wrap(err, "source: decode json rows")
		}
	} else {
		var wrapped struct {
			Headers []string     `json:"headers"`
			Rows    *[]model.Row `json:"rows"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return model.Snapshot{}, eris.Wrap(err, "source: decode json snapshot")
		}
		if wrapped.Rows == nil {
			return model.Snapshot{}, ErrNoTable
		}
		snap.Headers = wrapped.Headers
		snap.Rows = *wrapped.Rows
	}
	return normalize(snap), nil
}

// DecodeYAML decodes a YAML snapshot.
func DecodeYAML(data []byte) (model.Snapshot, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return model.Snapshot{}, eris.Wrap(err, "source: decode yaml")
	}
	if len(node.Content) == 0 {
		return model.Snapshot{}, ErrNoTable
	}

	var snap model.Snapshot
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&snap.Rows); err != nil {
			return model.Snapshot{}, eris.Wrap(err, "source: decode yaml rows")
		}
	case yaml.MappingNode:
		var wrapped struct {
			Headers []string     `yaml:"headers"`
			Rows    *[]model.Row `yaml:"rows"`
		}
		if err := root.Decode(&wrapped); err != nil {
			return model.Snapshot{}, eris.Wrap(err, "source: decode yaml snapshot")
		}
		if wrapped.Rows == nil {
			return model.Snapshot{}, ErrNoTable
		}
		snap.Headers = wrapped.Headers
		snap.Rows = *wrapped.Rows
	default:
		return model.Snapshot{}, ErrNoTable
	}
	return normalize(snap), nil
}

func normalize(snap model.Snapshot) model.Snapshot {
	if snap.Rows == nil {
		snap.Rows = []model.Row{}
	}
	for i, r := range snap.Rows {
		snap.Rows[i] = model.Row{
			Name:        strings.TrimSpace(r.Name),
			RecordText:  strings.TrimSpace(r.RecordText),
			StorageText: strings.TrimSpace(r.StorageText),
			TasksText:   strings.TrimSpace(r.TasksText),
		}
	}
	if len(snap.Headers) > 0 {
		snap.Headers = withCost(snap.Headers)
	}
	return snap
}
