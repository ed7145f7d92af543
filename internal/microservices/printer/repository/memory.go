package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type MemoryPrinters struct {
	mu      sync.Mutex
	workers map[string]WorkerStatus
}

func NewMemoryPrinters() *MemoryPrinters {
	return &MemoryPrinters{workers: make(map[string]WorkerStatus)}
}

func (m *MemoryPrinters) RegisterOrFail(_ context.Context, name, sink string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.workers[name]; ok && w.Status == "online" {
		return true, fmt.Errorf("printer worker %s already online", name)
	}
	w := m.workers[name]
	w.Name, w.Sink, w.Status, w.LastSeen = name, sink, "online", time.Now().UTC()
	m.workers[name] = w
	return false, nil
}

func (m *MemoryPrinters) touch(name string, fn func(*WorkerStatus)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[name]
	if !ok {
		return nil
	}
	fn(&w)
	w.LastSeen = time.Now().UTC()
	m.workers[name] = w
	return nil
}

func (m *MemoryPrinters) Heartbeat(_ context.Context, name string) error {
	return m.touch(name, func(*WorkerStatus) {})
}

func (m *MemoryPrinters) SetOffline(_ context.Context, name string) error {
	return m.touch(name, func(w *WorkerStatus) { w.Status = "offline" })
}

func (m *MemoryPrinters) MarkPrinted(_ context.Context, name string) error {
	return m.touch(name, func(w *WorkerStatus) { w.TicketsPrinted++ })
}

func (m *MemoryPrinters) List(_ context.Context) ([]WorkerStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WorkerStatus, 0, len(m.workers))
	for _, w := range m.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
