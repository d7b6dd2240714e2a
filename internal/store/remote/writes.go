package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/Riboost-Studio/print-station/internal/model"
)

// attemptBody is the PATCH body for a print outcome. The server increments
// attempts itself.
type attemptBody struct {
	Success    bool      `json:"success"`
	StationID  string    `json:"stationId"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
	DurationMs int64     `json:"durationMs"`
}

type atBody struct {
	At time.Time `json:"at"`
}

func (c *Client) GetOrder(ctx context.Context, id string) (model.Order, error) {
	var o model.Order
	err := c.do(ctx, http.MethodGet, "/api/orders/"+escape(id), nil, &o)
	return o, err
}

func (c *Client) RecordPrintAttempt(ctx context.Context, orderID string, a model.PrintAttempt) (model.PrintStatus, error) {
	var ps model.PrintStatus
	err := c.do(ctx, http.MethodPatch, "/api/orders/"+escape(orderID)+"/print-status", attemptBody{
		Success:    a.Success,
		StationID:  a.StationID,
		Error:      a.Error,
		At:         a.At,
		DurationMs: a.Duration.Milliseconds(),
	}, &ps)
	return ps, err
}

func (c *Client) GetStation(ctx context.Context, id string) (model.Station, error) {
	var st model.Station
	err := c.do(ctx, http.MethodGet, "/api/stations/"+escape(id), nil, &st)
	return st, err
}

func (c *Client) UpsertStation(ctx context.Context, st model.Station) error {
	return c.do(ctx, http.MethodPut, "/api/stations/"+escape(st.ID), st, nil)
}

func (c *Client) Heartbeat(ctx context.Context, id string, at time.Time) error {
	return c.do(ctx, http.MethodPost, "/api/stations/"+escape(id)+"/heartbeat", atBody{At: at}, nil)
}

func (c *Client) SetOffline(ctx context.Context, id string, at time.Time) error {
	return c.do(ctx, http.MethodPost, "/api/stations/"+escape(id)+"/offline", atBody{At: at}, nil)
}

func (c *Client) IncrementPrinted(ctx context.Context, id string, at time.Time) (model.StationStats, error) {
	var stats model.StationStats
	err := c.do(ctx, http.MethodPost, "/api/stations/"+escape(id)+"/printed", atBody{At: at}, &stats)
	return stats, err
}
