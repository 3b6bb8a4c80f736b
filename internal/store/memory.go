package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process Store with the same transactional contract as
// Postgres: staged writes commit together under one lock, so transactions
// are trivially serializable. Used by tests and -memory demo runs.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]json.RawMessage

	subMu sync.Mutex
	subs  []chan Event
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]json.RawMessage)}
}

func (m *Memory) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(collection, id)
}

func (m *Memory) get(collection, id string) (json.RawMessage, error) {
	doc, ok := m.data[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return doc, nil
}

func (m *Memory) List(ctx context.Context, collection string) ([]Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]Doc, 0, len(m.data[collection]))
	for id, doc := range m.data[collection] {
		docs = append(docs, Doc{ID: id, Data: doc})
	}
	return docs, nil
}

func (m *Memory) RunTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	tx := &memTx{store: m, staged: make(map[string]map[string]json.RawMessage)}
	if err := fn(tx); err != nil {
		m.mu.Unlock()
		return err
	}
	for col, docs := range tx.staged {
		if m.data[col] == nil {
			m.data[col] = make(map[string]json.RawMessage)
		}
		for id, doc := range docs {
			if doc == nil {
				delete(m.data[col], id)
			} else {
				m.data[col][id] = doc
			}
		}
	}
	m.mu.Unlock()
	m.broadcast(tx.events)
	return nil
}

// Subscribe returns a channel of committed change events. Slow consumers
// miss events rather than block writers.
func (m *Memory) Subscribe() <-chan Event {
	ch := make(chan Event, 128)
	m.subMu.Lock()
	m.subs = append(m.subs, ch)
	m.subMu.Unlock()
	return ch
}

func (m *Memory) broadcast(events []Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ev := range events {
		for _, ch := range m.subs {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		close(ch)
	}
	m.subs = nil
}

type memTx struct {
	store  *Memory
	staged map[string]map[string]json.RawMessage // nil value = staged delete
	events []Event
}

func (t *memTx) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if docs, ok := t.staged[collection]; ok {
		if doc, staged := docs[id]; staged {
			if doc == nil {
				return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
			}
			return doc, nil
		}
	}
	return t.store.get(collection, id)
}

func (t *memTx) List(ctx context.Context, collection string) ([]Doc, error) {
	merged := make(map[string]json.RawMessage, len(t.store.data[collection]))
	for id, doc := range t.store.data[collection] {
		merged[id] = doc
	}
	for id, doc := range t.staged[collection] {
		if doc == nil {
			delete(merged, id)
		} else {
			merged[id] = doc
		}
	}
	docs := make([]Doc, 0, len(merged))
	for id, doc := range merged {
		docs = append(docs, Doc{ID: id, Data: doc})
	}
	return docs, nil
}

func (t *memTx) Put(ctx context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	t.stage(collection, id, body)
	t.events = append(t.events, Event{Collection: collection, ID: id, Op: OpPut})
	return nil
}

func (t *memTx) Delete(ctx context.Context, collection, id string) error {
	t.stage(collection, id, nil)
	t.events = append(t.events, Event{Collection: collection, ID: id, Op: OpDelete})
	return nil
}

func (t *memTx) stage(collection, id string, doc json.RawMessage) {
	if t.staged[collection] == nil {
		t.staged[collection] = make(map[string]json.RawMessage)
	}
	t.staged[collection][id] = doc
}
