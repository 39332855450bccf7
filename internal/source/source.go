// Package source reads apps-table row snapshots from saved pages and
// snapshot files.
package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
)

// ErrNoTable means the input holds no apps table.
var ErrNoTable = eris.New("No Knack apps table found")

// CostHeader is appended to the scraped header labels.
const CostHeader = "Cost"

// File is a row source backed by a path on disk. It is re-read on every
// call.
type File interface {
	Snapshot(ctx context.Context) (model.Snapshot, error)
	Path() string
}

// Open picks a reader by file extension.
func Open(path string) (File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return HTMLFile{path: path}, nil
	case ".json":
		return SnapshotFile{path: path, format: formatJSON}, nil
	case ".yaml", ".yml":
		return SnapshotFile{path: path, format: formatYAML}, nil
	}
	return nil, eris.Errorf("source: unsupported file type %q", path)
}

// withCost returns headers with a single trailing Cost label. An existing
// cost label (a page saved with the cost column already injected) is
// dropped first.
func withCost(headers []string) []string {
	out := make([]string, 0, len(headers)+1)
	for _, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), CostHeader) {
			continue
		}
		out = append(out, h)
	}
	return append(out, CostHeader)
}
