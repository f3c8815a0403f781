package sighting

import (
	"context"
	"slices"
	"sync"
)

// MemoryTable is an in-process Table.
type MemoryTable struct {
	mu     sync.Mutex
	rows   [][]string
	writes int
}

// NewMemoryTable creates a table holding a copy of rows
func NewMemoryTable(rows ...[]string) *MemoryTable {
	return &MemoryTable{rows: cloneRows(rows)}
}

// ReadAll returns a copy of every row
func (m *MemoryTable) ReadAll(_ context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRows(m.rows), nil
}

// ReplaceAll overwrites the table
func (m *MemoryTable) ReplaceAll(_ context.Context, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = cloneRows(rows)
	m.writes++
	return nil
}

// Writes returns how many times the table was replaced
func (m *MemoryTable) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = slices.Clone(row)
	}
	return out
}
