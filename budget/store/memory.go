// Package store provides in-memory budget.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/yomi/budget-engine/budget"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	lines map[budget.LineID]budget.Line
	order []budget.LineID
}

func NewMemory() *Memory {
	return &Memory{lines: make(map[budget.LineID]budget.Line)}
}

func (m *Memory) ListLines(_ context.Context, projectID budget.ProjectID) ([]budget.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(projectID), nil
}

func (m *Memory) GetLine(_ context.Context, id budget.LineID) (budget.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

// SaveLines upserts lines. New ids keep their first-insert position.
func (m *Memory) SaveLines(_ context.Context, lines ...budget.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveLocked(lines)
	return nil
}

func (m *Memory) DeleteLines(_ context.Context, ids ...budget.LineID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(ids)
	return nil
}

func (m *Memory) listLocked(projectID budget.ProjectID) []budget.Line {
	var out []budget.Line
	for _, id := range m.order {
		if l := m.lines[id]; l.ProjectID == projectID {
			out = append(out, l)
		}
	}
	return out
}

func (m *Memory) getLocked(id budget.LineID) (budget.Line, error) {
	l, ok := m.lines[id]
	if !ok {
		return budget.Line{}, &budget.LineNotFoundError{ID: id}
	}
	return l, nil
}

func (m *Memory) saveLocked(lines []budget.Line) {
	for _, l := range lines {
		if _, ok := m.lines[l.ID]; !ok {
			m.order = append(m.order, l.ID)
		}
		m.lines[l.ID] = l
	}
}

func (m *Memory) deleteLocked(ids []budget.LineID) {
	if len(ids) == 0 {
		return
	}
	gone := make(map[budget.LineID]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
		delete(m.lines, id)
	}
	kept := make([]budget.LineID, 0, len(m.order))
	for _, id := range m.order {
		if !gone[id] {
			kept = append(kept, id)
		}
	}
	m.order = kept
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(budget.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	lines map[budget.LineID]budget.Line
	order []budget.LineID
}

func (tm *TxMemory) snapshot() memorySnapshot {
	lines := make(map[budget.LineID]budget.Line, len(tm.lines))
	for k, v := range tm.lines {
		lines[k] = v
	}
	return memorySnapshot{lines: lines, order: append([]budget.LineID(nil), tm.order...)}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.lines = s.lines
	tm.order = s.order
}

// txMemoryView runs under the parent's write lock.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) ListLines(_ context.Context, projectID budget.ProjectID) ([]budget.Line, error) {
	return tv.parent.listLocked(projectID), nil
}

func (tv *txMemoryView) GetLine(_ context.Context, id budget.LineID) (budget.Line, error) {
	return tv.parent.getLocked(id)
}

func (tv *txMemoryView) SaveLines(_ context.Context, lines ...budget.Line) error {
	tv.parent.saveLocked(lines)
	return nil
}

func (tv *txMemoryView) DeleteLines(_ context.Context, ids ...budget.LineID) error {
	tv.parent.deleteLocked(ids)
	return nil
}
