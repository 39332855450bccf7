// Package model defines domain types for knackcost rows and aggregates.
package model

// Row is one scraped apps-table row. All fields hold the raw, trimmed cell text.
type Row struct {
	Name        string `json:"name" yaml:"name"`
	RecordText  string `json:"records" yaml:"records"`
	StorageText string `json:"storage" yaml:"storage"`
	TasksText   string `json:"tasks,omitempty" yaml:"tasks,omitempty"`
}

// CostedRow is a Row plus the values derived from it during a pass.
type CostedRow struct {
	Row

	Records   int64   `json:"record_count"`
	StorageGB float64 `json:"storage_gb"`
	Cost      float64 `json:"cost"`

	// CostText is the rendered cost cell (symbol + fixed decimals).
	CostText string `json:"cost_text"`
}

// AggregateResult holds the output of one processing pass.
// Rows keep their input order.
type AggregateResult struct {
	Rows           []CostedRow `json:"rows"`
	TotalRecords   int64       `json:"total_records"`
	TotalStorageGB float64     `json:"total_storage_gb"`
	TotalCost      float64     `json:"total_cost"`
}

// Empty reports whether the pass saw no rows at all.
func (r AggregateResult) Empty() bool {
	return len(r.Rows) == 0
}

// Snapshot is the set of rows visible at one moment, with the table's
// header labels when the source provides them.
type Snapshot struct {
	Headers []string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Rows    []Row    `json:"rows" yaml:"rows"`
}
