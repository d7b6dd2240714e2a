package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/print-station/internal/model"
	"github.com/Riboost-Studio/print-station/internal/store"
)

func order(id, station string) model.Order {
	return model.Order{ID: id, Station: station, CustomerNumber: 1, Total: model.MustMoney("1.00")}
}

func TestSubscribeSnapshotAndFanOut(t *testing.T) {
	m := New()
	m.PutOrder(order("a", "s1"))
	m.PutOrder(order("b", "s1"))
	m.PutOrder(order("x", "s2"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan model.OrderChange, 16)
	go m.Subscribe(ctx, "s1", func(c model.OrderChange) { got <- c })

	next := func() model.OrderChange {
		select {
		case c := <-got:
			return c
		case <-time.After(time.Second):
			t.Fatal("no change delivered")
		}
		return model.OrderChange{}
	}

	assert.Equal(t, "a", next().Order.ID)
	assert.Equal(t, "b", next().Order.ID)

	m.PutOrder(order("c", "s1"))
	c := next()
	assert.Equal(t, model.ChangeAdded, c.Type)
	assert.Equal(t, "c", c.Order.ID)

	_, err := m.RecordPrintAttempt(ctx, "c", model.PrintAttempt{Success: true, StationID: "s1", At: time.Now()})
	require.NoError(t, err)
	c = next()
	assert.Equal(t, model.ChangeModified, c.Type)
	assert.True(t, c.Order.PrintStatus.Printed)

	m.RemoveOrder("a")
	assert.Equal(t, model.ChangeRemoved, next().Type)
}

func TestRecordPrintAttemptNeverResetsPrinted(t *testing.T) {
	m := New()
	m.PutOrder(order("a", "s1"))
	ctx := context.Background()

	_, err := m.RecordPrintAttempt(ctx, "a", model.PrintAttempt{Success: true, StationID: "s1", At: time.Now()})
	require.NoError(t, err)
	ps, err := m.RecordPrintAttempt(ctx, "a", model.PrintAttempt{Error: "boom", At: time.Now()})
	require.NoError(t, err)

	assert.True(t, ps.Printed)
	assert.Equal(t, 2, ps.Attempts)

	_, err = m.RecordPrintAttempt(ctx, "missing", model.PrintAttempt{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStationLifecycle(t *testing.T) {
	m := New()
	ctx := context.Background()
	now := time.Now()

	assert.ErrorIs(t, m.Heartbeat(ctx, "s1", now), store.ErrNotFound)
	require.NoError(t, m.UpsertStation(ctx, model.Station{ID: "s1", Online: true, LastPing: now}))
	require.NoError(t, m.Heartbeat(ctx, "s1", now.Add(time.Second)))

	stats, err := m.IncrementPrinted(ctx, "s1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPrinted)

	require.NoError(t, m.SetOffline(ctx, "s1", now.Add(2*time.Second)))
	st, err := m.GetStation(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, st.Online)
	assert.Equal(t, now.Add(2*time.Second), st.LastPing)
}
