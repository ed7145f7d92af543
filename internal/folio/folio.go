// Package folio allocates order numbers. Every backend increments
// atomically in its store; the first number handed out is base+1.
package folio

import (
	"context"
	"sync"
)

const counterName = "order_number"

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS counters (
		name  TEXT PRIMARY KEY,
		value BIGINT NOT NULL
	)`,
}

// Memory is a process-local allocator for single-terminal setups and tests.
type Memory struct {
	mu   sync.Mutex
	last int64
}

func NewMemory(base int64) *Memory { return &Memory{last: base} }

func (m *Memory) Next(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last++
	return m.last, nil
}
