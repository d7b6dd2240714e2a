package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Riboost-Studio/print-station/internal/model"
	"github.com/Riboost-Studio/print-station/internal/store"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "station.db"), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return s
}

func sampleOrder(id, station string) model.Order {
	return model.Order{
		ID:             id,
		CustomerNumber: 42,
		Station:        station,
		Items: []model.Item{
			{Name: "Panino", Quantity: 2, Price: model.MustMoney("3.00"), PreparationLine: "Salato"},
			{Name: "Caffè", Quantity: 1, Price: model.MustMoney("2.50"), PreparationLine: "Bar"},
		},
		Total:     model.MustMoney("8.50"),
		Status:    model.OrderPending,
		CreatedAt: time.Date(2026, time.March, 14, 19, 30, 0, 0, time.UTC),
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open("", 0); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestMigrationsApplyOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "station.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path, 0)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close #%d: %v", i, err)
		}
	}
}

func TestInsertGetOrderRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	in := sampleOrder("ord-1", "cassa-1")
	if err := s.InsertOrder(ctx, in); err != nil {
		t.Fatalf("insert order: %v", err)
	}

	got, err := s.GetOrder(ctx, "ord-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Station != "cassa-1" || got.CustomerNumber != 42 {
		t.Fatalf("order = %+v", got)
	}
	if len(got.Items) != 2 || got.Items[1].Name != "Caffè" {
		t.Fatalf("items = %+v", got.Items)
	}
	if !got.Total.Equal(in.Total.Decimal) {
		t.Fatalf("total = %s, want %s", got.Total.Fixed(), in.Total.Fixed())
	}
	if !got.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("createdAt = %v, want %v", got.CreatedAt, in.CreatedAt)
	}
	if got.PrintStatus.Printed || got.PrintStatus.Attempts != 0 {
		t.Fatalf("print status = %+v", got.PrintStatus)
	}

	if err := s.InsertOrder(ctx, in); !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("duplicate insert err = %v, want ErrDuplicateOrder", err)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	if _, err := s.GetOrder(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.RecordPrintAttempt(context.Background(), "missing", model.PrintAttempt{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordPrintAttempt(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	if err := s.InsertOrder(ctx, sampleOrder("ord-1", "cassa-1")); err != nil {
		t.Fatalf("insert order: %v", err)
	}
	at := time.Date(2026, time.March, 14, 19, 31, 0, 0, time.UTC)

	ps, err := s.RecordPrintAttempt(ctx, "ord-1", model.PrintAttempt{StationID: "cassa-1", Error: "lp: printer offline", At: at})
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if ps.Printed || ps.Attempts != 1 || ps.Error == nil || *ps.Error != "lp: printer offline" {
		t.Fatalf("after failure = %+v", ps)
	}

	ps, err = s.RecordPrintAttempt(ctx, "ord-1", model.PrintAttempt{Success: true, StationID: "cassa-1", At: at.Add(time.Minute)})
	if err != nil {
		t.Fatalf("record success: %v", err)
	}
	if !ps.Printed || ps.Attempts != 2 || ps.Error != nil {
		t.Fatalf("after success = %+v", ps)
	}
	if ps.PrintedBy == nil || *ps.PrintedBy != "cassa-1" {
		t.Fatalf("printedBy = %v", ps.PrintedBy)
	}

	ps, err = s.RecordPrintAttempt(ctx, "ord-1", model.PrintAttempt{StationID: "cassa-1", Error: "late failure", At: at.Add(2 * time.Minute)})
	if err != nil {
		t.Fatalf("record late failure: %v", err)
	}
	if !ps.Printed {
		t.Fatal("printed was reset to false")
	}
	if ps.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", ps.Attempts)
	}

	got, err := s.GetOrder(ctx, "ord-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != model.OrderPending || len(got.Items) != 2 {
		t.Fatalf("non print fields changed: %+v", got)
	}
}

func TestRecordPrintAttemptConcurrentIncrements(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	if err := s.InsertOrder(ctx, sampleOrder("ord-1", "cassa-1")); err != nil {
		t.Fatalf("insert order: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RecordPrintAttempt(ctx, "ord-1", model.PrintAttempt{Error: "x", At: time.Now()}); err != nil {
				t.Errorf("record: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.GetOrder(ctx, "ord-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.PrintStatus.Attempts != n {
		t.Fatalf("attempts = %d, want %d", got.PrintStatus.Attempts, n)
	}
}

func TestSubscribeSnapshotThenChanges(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.InsertOrder(ctx, sampleOrder("ord-1", "cassa-1")); err != nil {
		t.Fatalf("insert order: %v", err)
	}
	if err := s.InsertOrder(ctx, sampleOrder("other", "cassa-2")); err != nil {
		t.Fatalf("insert order: %v", err)
	}

	changes := make(chan model.OrderChange, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.Subscribe(ctx, "cassa-1", func(c model.OrderChange) { changes <- c })
	}()

	expect := func(typ model.ChangeType, id string) model.OrderChange {
		t.Helper()
		select {
		case c := <-changes:
			if c.Type != typ || c.Order.ID != id {
				t.Fatalf("change = %s %s, want %s %s", c.Type, c.Order.ID, typ, id)
			}
			return c
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s %s", typ, id)
		}
		return model.OrderChange{}
	}

	expect(model.ChangeAdded, "ord-1")

	if err := s.InsertOrder(ctx, sampleOrder("ord-2", "cassa-1")); err != nil {
		t.Fatalf("insert order: %v", err)
	}
	expect(model.ChangeAdded, "ord-2")

	if _, err := s.RecordPrintAttempt(ctx, "ord-2", model.PrintAttempt{Success: true, StationID: "cassa-1", At: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	c := expect(model.ChangeModified, "ord-2")
	if !c.Order.PrintStatus.Printed {
		t.Fatal("modified change does not carry printed status")
	}

	if err := s.DeleteOrder(ctx, "ord-1"); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	expect(model.ChangeRemoved, "ord-1")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("subscribe returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
}

func TestStationPresenceAndStats(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	start := time.Date(2026, time.March, 14, 18, 0, 0, 0, time.UTC)

	if err := s.Heartbeat(ctx, "cassa-1", start); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("heartbeat before upsert err = %v", err)
	}
	if err := s.UpsertStation(ctx, model.Station{ID: "cassa-1", Name: "Cassa 1", PrinterName: "EPSON", Online: true, LastPing: start}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Heartbeat(ctx, "cassa-1", start.Add(30*time.Second)); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	stats, err := s.IncrementPrinted(ctx, "cassa-1", start.Add(time.Minute))
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if stats.TotalPrinted != 1 || stats.TodayPrinted != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	stats, err = s.IncrementPrinted(ctx, "cassa-1", start.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("increment next day: %v", err)
	}
	if stats.TotalPrinted != 2 || stats.TodayPrinted != 1 {
		t.Fatalf("next day stats = %+v", stats)
	}

	if err := s.SetOffline(ctx, "cassa-1", start.Add(25*time.Hour)); err != nil {
		t.Fatalf("set offline: %v", err)
	}
	st, err := s.GetStation(ctx, "cassa-1")
	if err != nil {
		t.Fatalf("get station: %v", err)
	}
	if st.Online {
		t.Fatal("station still online")
	}
	if !st.LastPing.Equal(start.Add(25 * time.Hour)) {
		t.Fatalf("lastPing = %v", st.LastPing)
	}
	if st.Stats.TotalPrinted != 2 || st.Name != "Cassa 1" {
		t.Fatalf("station = %+v", st)
	}
}
