// Package presence keeps a station's online record and heartbeat.
package presence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Riboost-Studio/print-station/internal/model"
	"github.com/Riboost-Studio/print-station/internal/store"
)

const DefaultHeartbeatInterval = 30 * time.Second

type State string

const (
	StateIdle        State = "idle"
	StateRegistering State = "registering"
	StateActive      State = "active"
	StateStopping    State = "stopping"
)

var ErrStopped = errors.New("presence manager stopped")

type Manager struct {
	stations store.StationStore
	station  model.Station
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	offline bool // registered online and not yet marked offline
}

// New builds a manager for st. Only ID, Name, PrinterName and TempDir of st
// are used; stats come from the store.
func New(stations store.StationStore, st model.Station, interval time.Duration, logger *log.Logger) *Manager {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		stations: stations,
		station:  st,
		interval: interval,
		now:      time.Now,
		logger:   logger,
		state:    StateIdle,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start registers the station online, keeping stats already stored, and
// starts the heartbeat.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if state := m.state; state != StateIdle {
		m.mu.Unlock()
		if state == StateStopping {
			return ErrStopped
		}
		return fmt.Errorf("presence manager already %s", state)
	}
	m.state = StateRegistering
	m.mu.Unlock()

	st := m.station
	st.Online = true
	st.LastPing = m.now()
	st.Stats = model.StationStats{}

	existing, err := m.stations.GetStation(ctx, st.ID)
	switch {
	case err == nil:
		st.Stats = existing.Stats
	case !errors.Is(err, store.ErrNotFound):
		m.resetIfRegistering()
		return fmt.Errorf("read station %s: %w", st.ID, err)
	}
	if err := m.stations.UpsertStation(ctx, st); err != nil {
		m.resetIfRegistering()
		return fmt.Errorf("register station %s: %w", st.ID, err)
	}

	hbCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	m.mu.Lock()
	if m.state != StateRegistering {
		// stopped while registering: undo the online write
		m.mu.Unlock()
		cancel()
		if err := m.stations.SetOffline(context.WithoutCancel(ctx), st.ID, m.now()); err != nil {
			return fmt.Errorf("mark station %s offline: %w", st.ID, err)
		}
		return ErrStopped
	}
	m.state = StateActive
	m.cancel = cancel
	m.done = done
	m.offline = true
	m.mu.Unlock()

	go m.heartbeat(hbCtx, done)
	m.logger.Printf("[%s] Station registered online (printer %q)", st.ID, st.PrinterName)
	return nil
}

func (m *Manager) heartbeat(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.stations.Heartbeat(ctx, m.station.ID, m.now()); err != nil && ctx.Err() == nil {
				m.logger.Printf("[%s] Heartbeat failed: %v", m.station.ID, err)
			}
		}
	}
}

// StopHeartbeat ends the heartbeat and waits for it to exit. The manager
// moves to stopping; the station record stays online until Stop.
func (m *Manager) StopHeartbeat() {
	m.mu.Lock()
	m.state = StateStopping
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Stop ends the heartbeat if it is still running and marks the station
// offline. It is terminal; a second call is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	m.StopHeartbeat()

	m.mu.Lock()
	pending := m.offline
	m.offline = false
	m.mu.Unlock()
	if !pending {
		return nil
	}
	if err := m.stations.SetOffline(ctx, m.station.ID, m.now()); err != nil {
		return fmt.Errorf("mark station %s offline: %w", m.station.ID, err)
	}
	m.logger.Printf("[%s] Station marked offline", m.station.ID)
	return nil
}

func (m *Manager) resetIfRegistering() {
	m.mu.Lock()
	if m.state == StateRegistering {
		m.state = StateIdle
	}
	m.mu.Unlock()
}
