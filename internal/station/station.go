// Package station runs the print pipeline of one station process: new orders
// from the feed are compiled, dispatched to the printer and marked printed.
package station

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Riboost-Studio/print-station/internal/completion"
	"github.com/Riboost-Studio/print-station/internal/consumer"
	"github.com/Riboost-Studio/print-station/internal/model"
	"github.com/Riboost-Studio/print-station/internal/presence"
	"github.com/Riboost-Studio/print-station/internal/printer"
	"github.com/Riboost-Studio/print-station/internal/receipt"
)

const tracerName = "github.com/Riboost-Studio/print-station/internal/station"

// Deps are the services one station process is built from.
type Deps struct {
	StationID  string
	Name       string
	Consumer   *consumer.Consumer
	Compiler   *receipt.Compiler
	Dispatcher *printer.Dispatcher
	Writer     *completion.Writer
	Presence   *presence.Manager
	Logger     *log.Logger
	// ShutdownTimeout bounds the offline write at shutdown.
	ShutdownTimeout time.Duration
}

type Station struct {
	Deps
	tracer trace.Tracer
	now    func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
	runs     sync.WaitGroup
}

func New(d Deps) *Station {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.ShutdownTimeout <= 0 {
		d.ShutdownTimeout = 10 * time.Second
	}
	return &Station{
		Deps:     d,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
}

// Run registers the station and consumes orders until ctx is canceled. On
// cancel the heartbeat stops at once, in-flight prints finish, then the
// station is marked offline.
func (s *Station) Run(ctx context.Context) error {
	if err := s.Presence.Start(ctx); err != nil {
		return err
	}
	s.Logger.Printf("[%s] Listening for orders...", s.StationID)

	s.Consumer.Run(ctx, s.handle)
	s.Presence.StopHeartbeat()

	s.Logger.Printf("[%s] Shutting down, waiting for %d print job(s)...", s.StationID, s.InFlight())
	s.runs.Wait()

	var errs []error
	if err := s.Dispatcher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.ShutdownTimeout)
	defer cancel()
	if err := s.Presence.Stop(stopCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// handle starts one pipeline run per new order. Orders already in flight
// are skipped.
func (s *Station) handle(ctx context.Context, change model.OrderChange) {
	if change.Type != model.ChangeAdded {
		return
	}
	order := change.Order

	s.mu.Lock()
	if _, busy := s.inflight[order.ID]; busy {
		s.mu.Unlock()
		return
	}
	s.inflight[order.ID] = struct{}{}
	s.runs.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.runs.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, order.ID)
			s.mu.Unlock()
		}()
		s.process(context.WithoutCancel(ctx), order)
	}()
}

// InFlight returns the number of orders being printed.
func (s *Station) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

func (s *Station) process(ctx context.Context, order model.Order) {
	ctx, span := s.tracer.Start(ctx, "station.print_order", trace.WithAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int("order.customer_number", order.CustomerNumber),
		attribute.String("station.id", s.StationID),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.Logger.Printf("[%s] Order #%d: pipeline panic: %v", s.StationID, order.CustomerNumber, r)
			span.SetStatus(codes.Error, fmt.Sprint(r))
		}
	}()

	s.Logger.Printf("[%s] Received order #%d (%s), %d item(s)", s.StationID, order.CustomerNumber, order.ID, len(order.Items))

	data := s.Compiler.Compile(order)
	span.SetAttributes(attribute.Int("receipt.bytes", len(data)))

	res := s.Dispatcher.Dispatch(ctx, data, "")
	span.SetAttributes(attribute.String("print.job_id", res.JobID))
	if res.Success {
		s.Logger.Printf("[%s] Order #%d sent to printer (job %s)", s.StationID, order.CustomerNumber, res.JobID)
	} else {
		s.Logger.Printf("[%s] Order #%d print failed: %s", s.StationID, order.CustomerNumber, res.Error)
		span.SetStatus(codes.Error, res.Error)
	}

	ps, err := s.Writer.RecordOutcome(ctx, order.ID, res.Success, res.Error, res.Duration)
	if err != nil {
		s.Logger.Printf("[%s] Order #%d: %v", s.StationID, order.CustomerNumber, err)
		span.RecordError(err)
		return
	}
	span.SetAttributes(attribute.Int("print.attempts", ps.Attempts))
	s.Logger.Printf("[%s] Order #%d recorded (printed=%t, attempts=%d)", s.StationID, order.CustomerNumber, ps.Printed, ps.Attempts)
}

// TestPrint compiles and dispatches the sample order. Nothing is written
// back since the order is not stored anywhere.
func (s *Station) TestPrint(ctx context.Context) printer.Result {
	order := receipt.SampleOrder(s.StationID, s.now())
	ctx, span := s.tracer.Start(ctx, "station.test_print")
	defer span.End()

	res := s.Dispatcher.Dispatch(ctx, s.Compiler.Compile(order), "")
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
	}
	return res
}

// PrintText prints styled free text as an ESC/POS job.
func (s *Station) PrintText(ctx context.Context, text string, opts receipt.TextOptions) printer.Result {
	return s.Dispatcher.Dispatch(ctx, s.Compiler.CompileText(text, opts), "")
}

// PrintPlain sends text through the spooler's text path.
func (s *Station) PrintPlain(ctx context.Context, text string) printer.Result {
	return s.Dispatcher.DispatchText(ctx, text)
}

// Printers lists the devices the OS reports.
func (s *Station) Printers(ctx context.Context) ([]printer.Device, error) {
	return s.Dispatcher.ListPrinters(ctx)
}

// PrinterStatus returns the OS status text of the configured printer.
func (s *Station) PrinterStatus(ctx context.Context) (string, error) {
	return s.Dispatcher.Status(ctx)
}

// SampleReceipt compiles the sample order without printing it.
func (s *Station) SampleReceipt() []byte {
	return s.Compiler.Compile(receipt.SampleOrder(s.StationID, s.now()))
}

// Columns is the receipt width in characters.
func (s *Station) Columns() int { return s.Compiler.Options().Width }

// Status summarises the station for health checks.
type Status struct {
	StationID  string         `json:"stationId"`
	Name       string         `json:"name"`
	Presence   presence.State `json:"presence"`
	Printer    string         `json:"printer"`
	Configured bool           `json:"configured"`
	Backend    string         `json:"backend"`
	InFlight   int            `json:"inFlight"`
}

func (s *Station) Status() Status {
	return Status{
		StationID:  s.StationID,
		Name:       s.Name,
		Presence:   s.Presence.State(),
		Printer:    s.Dispatcher.PrinterName(),
		Configured: s.Dispatcher.Configured(),
		Backend:    s.Dispatcher.Backend().Name(),
		InFlight:   s.InFlight(),
	}
}
