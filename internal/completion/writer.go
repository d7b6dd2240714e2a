// Package completion records print outcomes on orders and station stats.
package completion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Riboost-Studio/print-station/internal/model"
	"github.com/Riboost-Studio/print-station/internal/store"
)

type Writer struct {
	orders    store.OrderStore
	stations  store.StationStore
	stationID string
	now       func() time.Time
	logger    *log.Logger
}

func New(orders store.OrderStore, stations store.StationStore, stationID string, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.Default()
	}
	return &Writer{
		orders:    orders,
		stations:  stations,
		stationID: stationID,
		now:       time.Now,
		logger:    logger,
	}
}

// RecordOutcome writes one dispatch attempt to the order's print status. A
// success also counts in the station stats; a failure there is logged only,
// the order is already marked.
func (w *Writer) RecordOutcome(ctx context.Context, orderID string, success bool, errText string, duration time.Duration) (model.PrintStatus, error) {
	at := w.now()
	ps, err := w.orders.RecordPrintAttempt(ctx, orderID, model.PrintAttempt{
		Success:   success,
		StationID: w.stationID,
		Error:     errText,
		At:        at,
		Duration:  duration,
	})
	if err != nil {
		return model.PrintStatus{}, fmt.Errorf("record outcome of %s: %w", orderID, err)
	}
	if !success {
		return ps, nil
	}

	if _, err := w.stations.IncrementPrinted(ctx, w.stationID, at); err != nil {
		w.logger.Printf("[%s] Failed to update print stats: %v", w.stationID, err)
	}
	return ps, nil
}
