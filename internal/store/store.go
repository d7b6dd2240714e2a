// Package store defines the persistence the print pipeline reads orders from
// and writes print outcomes and station presence to.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Riboost-Studio/print-station/internal/model"
)

var ErrNotFound = errors.New("not found")

// OrderFeed delivers order changes for one station. Subscribe first delivers
// every current order of the station as an added change, then live changes.
// It blocks until ctx ends (returning nil) or the subscription fails.
type OrderFeed interface {
	Subscribe(ctx context.Context, stationID string, fn func(model.OrderChange)) error
}

type OrderStore interface {
	OrderFeed
	GetOrder(ctx context.Context, id string) (model.Order, error)
	// RecordPrintAttempt updates only the print status of an order. The
	// attempt counter is incremented atomically by the store.
	RecordPrintAttempt(ctx context.Context, orderID string, attempt model.PrintAttempt) (model.PrintStatus, error)
}

type StationStore interface {
	GetStation(ctx context.Context, id string) (model.Station, error)
	// UpsertStation writes the full station record.
	UpsertStation(ctx context.Context, st model.Station) error
	Heartbeat(ctx context.Context, id string, at time.Time) error
	SetOffline(ctx context.Context, id string, at time.Time) error
	// IncrementPrinted counts one successful print in the station stats.
	IncrementPrinted(ctx context.Context, id string, at time.Time) (model.StationStats, error)
}

// Store is everything one station process needs.
type Store interface {
	OrderStore
	StationStore
	Close() error
}
