// Package memory is an in-process store. Changes fan out to every live
// subscription of the order's station.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Riboost-Studio/print-station/internal/model"
	"github.com/Riboost-Studio/print-station/internal/store"
)

type subscriber struct {
	station string
	mu      sync.Mutex
	queue   []model.OrderChange
	notify  chan struct{}
}

func (s *subscriber) push(c model.OrderChange) {
	s.mu.Lock()
	s.queue = append(s.queue, c)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) drain() []model.OrderChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue
	s.queue = nil
	return q
}

type Store struct {
	mu       sync.Mutex
	orders   map[string]model.Order
	seq      map[string]int // insertion order for snapshots
	next     int
	stations map[string]model.Station
	subs     map[*subscriber]struct{}
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		orders:   make(map[string]model.Order),
		seq:      make(map[string]int),
		stations: make(map[string]model.Station),
		subs:     make(map[*subscriber]struct{}),
	}
}

// PutOrder inserts or replaces an order, notifying subscribers.
func (m *Store) PutOrder(o model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()

	typ := model.ChangeModified
	if _, ok := m.orders[o.ID]; !ok {
		typ = model.ChangeAdded
		m.next++
		m.seq[o.ID] = m.next
	}
	m.orders[o.ID] = o
	m.publish(model.OrderChange{Type: typ, Order: o})
}

// RemoveOrder deletes an order, notifying subscribers.
func (m *Store) RemoveOrder(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return
	}
	delete(m.orders, id)
	delete(m.seq, id)
	m.publish(model.OrderChange{Type: model.ChangeRemoved, Order: o})
}

// publish must be called with m.mu held.
func (m *Store) publish(c model.OrderChange) {
	for s := range m.subs {
		if s.station == c.Order.Station {
			s.push(c)
		}
	}
}

func (m *Store) Subscribe(ctx context.Context, stationID string, fn func(model.OrderChange)) error {
	sub := &subscriber{station: stationID, notify: make(chan struct{}, 1)}

	m.mu.Lock()
	var snapshot []model.Order
	for _, o := range m.orders {
		if o.Station == stationID {
			snapshot = append(snapshot, o)
		}
	}
	sort.Slice(snapshot, func(i, j int) bool { return m.seq[snapshot[i].ID] < m.seq[snapshot[j].ID] })
	m.subs[sub] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.subs, sub)
		m.mu.Unlock()
	}()

	for _, o := range snapshot {
		fn(model.OrderChange{Type: model.ChangeAdded, Order: o})
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.notify:
			for _, c := range sub.drain() {
				fn(c)
			}
		}
	}
}

func (m *Store) GetOrder(_ context.Context, id string) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
	}
	return o, nil
}

func (m *Store) RecordPrintAttempt(_ context.Context, orderID string, a model.PrintAttempt) (model.PrintStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return model.PrintStatus{}, fmt.Errorf("order %s: %w", orderID, store.ErrNotFound)
	}
	o.PrintStatus = o.PrintStatus.Apply(a)
	m.orders[orderID] = o
	m.publish(model.OrderChange{Type: model.ChangeModified, Order: o})
	return o.PrintStatus, nil
}

func (m *Store) GetStation(_ context.Context, id string) (model.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stations[id]
	if !ok {
		return model.Station{}, fmt.Errorf("station %s: %w", id, store.ErrNotFound)
	}
	return st, nil
}

func (m *Store) UpsertStation(_ context.Context, st model.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations[st.ID] = st
	return nil
}

func (m *Store) Heartbeat(_ context.Context, id string, at time.Time) error {
	return m.updateStation(id, func(st *model.Station) {
		st.Online = true
		st.LastPing = at
	})
}

func (m *Store) SetOffline(_ context.Context, id string, at time.Time) error {
	return m.updateStation(id, func(st *model.Station) {
		st.Online = false
		st.LastPing = at
	})
}

func (m *Store) IncrementPrinted(_ context.Context, id string, at time.Time) (model.StationStats, error) {
	var stats model.StationStats
	err := m.updateStation(id, func(st *model.Station) {
		st.Stats = st.Stats.CountPrinted(at)
		stats = st.Stats
	})
	return stats, err
}

func (m *Store) updateStation(id string, fn func(*model.Station)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stations[id]
	if !ok {
		return fmt.Errorf("station %s: %w", id, store.ErrNotFound)
	}
	fn(&st)
	m.stations[id] = st
	return nil
}

func (m *Store) Close() error { return nil }
