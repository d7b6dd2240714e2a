package printer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Riboost-Studio/print-station/internal/model"
)

// Dispatcher defaults.
const (
	DefaultCleanupDelay = 10 * time.Second
	DefaultTimeout      = 30 * time.Second
)

// Options configures a Dispatcher.
type Options struct {
	PrinterName string
	Raw         bool
	TempDir     string
	// CleanupDelay is how long an artifact outlives its job. Zero deletes it
	// as soon as the backend returns.
	CleanupDelay time.Duration
	// Timeout bounds one backend call. Zero means no bound.
	Timeout time.Duration
	Logger  *log.Logger
}

// Result is the outcome of one dispatch.
type Result struct {
	Success  bool          `json:"success"`
	JobID    string        `json:"jobId"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Artifact string        `json:"artifact,omitempty"`
	Bytes    int           `json:"bytes"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Dispatcher hands artifacts to a Backend strictly one at a time. Callers
// that arrive while a job is in flight wait their turn in arrival order.
type Dispatcher struct {
	backend Backend
	opts    Options
	logger  *log.Logger

	// sem holds a token while a job is in flight. Go queues blocked senders
	// in FIFO order.
	sem chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func NewDispatcher(backend Backend, opts Options) *Dispatcher {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if s, ok := backend.(*Socket); ok && s.Logger == nil {
		s.Logger = logger
	}
	return &Dispatcher{
		backend: backend,
		opts:    opts,
		logger:  logger,
		sem:     make(chan struct{}, 1),
		pending: make(map[string]*time.Timer),
	}
}

// Backend returns the backend selected at startup.
func (d *Dispatcher) Backend() Backend { return d.backend }

// PrinterName returns the configured printer.
func (d *Dispatcher) PrinterName() string { return d.opts.PrinterName }

// Configured reports whether a real printer name is set.
func (d *Dispatcher) Configured() bool {
	name := strings.TrimSpace(d.opts.PrinterName)
	return name != "" && name != model.PlaceholderPrinterName
}

// NewJobID returns a time-ordered unique job id.
func NewJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Dispatch sends data to the configured printer in raw mode when the
// dispatcher is configured for it. An empty jobID gets a generated one.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte, jobID string) Result {
	return d.dispatch(ctx, data, jobID, d.opts.Raw)
}

// DispatchText prints plain text through the spooler's text path.
func (d *Dispatcher) DispatchText(ctx context.Context, text string) Result {
	return d.dispatch(ctx, []byte(text), "", false)
}

func (d *Dispatcher) dispatch(ctx context.Context, data []byte, jobID string, raw bool) Result {
	start := time.Now()
	if jobID == "" {
		jobID = NewJobID()
	}
	res := Result{JobID: jobID, Bytes: len(data)}

	fail := func(err error) Result {
		res.Err = err
		res.Error = err.Error()
		res.Duration = time.Since(start)
		d.logger.Printf("[%s] Job %s failed: %v", d.opts.PrinterName, jobID, err)
		return res
	}

	if !d.Configured() {
		return fail(ErrPrinterNotConfigured)
	}

	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return fail(fmt.Errorf("waiting for printer: %w", ctx.Err()))
	}
	defer func() { <-d.sem }()

	path, err := d.writeArtifact(jobID, data)
	if err != nil {
		return fail(err)
	}
	res.Artifact = path

	callCtx := ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	d.logger.Printf("[%s] Sending job %s (%d bytes) via %s", d.opts.PrinterName, jobID, len(data), d.backend.Name())
	out, err := d.backend.Print(callCtx, Job{ID: jobID, Path: path, Printer: d.opts.PrinterName, Raw: raw})
	res.Output = out
	d.scheduleCleanup(path)

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return fail(err)
	}

	res.Success = true
	res.Duration = time.Since(start)
	d.logger.Printf("[%s] Job %s sent in %s", d.opts.PrinterName, jobID, res.Duration.Round(time.Millisecond))
	return res
}

func (d *Dispatcher) writeArtifact(jobID string, data []byte) (string, error) {
	if err := os.MkdirAll(d.opts.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	name := fmt.Sprintf("print-%s.bin", sanitize(jobID))
	path := filepath.Join(d.opts.TempDir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

func (d *Dispatcher) scheduleCleanup(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.opts.CleanupDelay <= 0 {
		os.Remove(path)
		return
	}
	d.pending[path] = time.AfterFunc(d.opts.CleanupDelay, func() {
		d.mu.Lock()
		delete(d.pending, path)
		d.mu.Unlock()
		os.Remove(path)
	})
}

// Close cancels pending cleanups and deletes their artifacts immediately.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	var errs []error
	for path, t := range d.pending {
		if t.Stop() {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
		delete(d.pending, path)
	}
	return errors.Join(errs...)
}

// ListPrinters asks the backend for the devices the OS knows about.
func (d *Dispatcher) ListPrinters(ctx context.Context) ([]Device, error) {
	return d.backend.ListPrinters(ctx)
}

// Status returns the OS status text for the configured printer.
func (d *Dispatcher) Status(ctx context.Context) (string, error) {
	if !d.Configured() {
		return "", ErrPrinterNotConfigured
	}
	return d.backend.Status(ctx, d.opts.PrinterName)
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '.':
			return '_'
		}
		return r
	}, id)
}
