// Package domain holds the fetch coordinator types and ports
package domain

import (
	perr "firewatch/internal/platform/errors"
)

// MaxLookbackDays is the widest window the FIRMS area API serves
const MaxLookbackDays = 10

// ErrAllSourcesFailed is returned when no configured source produced a table.
// It is coded Unavailable so the job runner retries the run
var ErrAllSourcesFailed = perr.New(perr.ErrorCodeUnavailable, "all detection sources failed")

// RawTable is a source payload as delivered: a header and ragged string rows.
// Nothing is typed yet; the ingestor owns coercion
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Len is the number of data rows
func (t RawTable) Len() int { return len(t.Rows) }

// SourceTable pairs a payload with the source that produced it
type SourceTable struct {
	Source string
	Table  RawTable
}

// SourceStat is the per-source outcome of one fetch
type SourceStat struct {
	Source    string `json:"source"`
	OK        bool   `json:"ok"`
	Rows      int    `json:"rows"`
	Err       string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Batch is what a fetch run hands to the ingestor. Tables hold only the
// sources that succeeded; Stats hold every configured source in config order
type Batch struct {
	Tables []SourceTable
	Stats  []SourceStat
}

// Rows totals data rows across successful sources
func (b Batch) Rows() int {
	n := 0
	for _, t := range b.Tables {
		n += t.Table.Len()
	}
	return n
}

// Failed counts sources that errored or timed out
func (b Batch) Failed() int {
	n := 0
	for _, s := range b.Stats {
		if !s.OK {
			n++
		}
	}
	return n
}
