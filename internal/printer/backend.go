// Package printer sends compiled receipts to a physical printer through one
// platform backend, one job at a time.
package printer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var (
	// ErrPrinterNotConfigured rejects a job before any OS call is made.
	ErrPrinterNotConfigured = errors.New("printer name not configured")
	// ErrUnsupportedPlatform is returned by Auto on an OS without a backend.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Job is one artifact ready to be handed to the OS.
type Job struct {
	ID      string
	Path    string // artifact on disk
	Printer string // queue or device name
	Raw     bool   // bytes go to the device uninterpreted
}

// Device is a printer the OS reports.
type Device struct {
	Name     string `json:"name"`
	Status   string `json:"status,omitempty"`
	Platform string `json:"platform"`
}

// Backend is the platform specific way to reach a printer. One is selected at
// startup.
type Backend interface {
	Name() string
	// Print hands the job to the OS and returns its output. A failed command
	// returns its error text unchanged.
	Print(ctx context.Context, job Job) (string, error)
	ListPrinters(ctx context.Context) ([]Device, error)
	Status(ctx context.Context, printer string) (string, error)
}

// Backend kinds accepted in configuration.
const (
	KindAuto    = "auto"
	KindCUPS    = "cups"
	KindWindows = "windows"
	KindSocket  = "socket"
)

// NewBackend selects a backend by kind. KindAuto picks the spooler of the
// running OS. address is only used by the socket backend.
func NewBackend(kind, address string, runner Runner) (Backend, error) {
	if runner == nil {
		runner = ExecRunner{}
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindAuto:
		return Auto(runtime.GOOS, runner)
	case KindCUPS, "lp":
		return NewCUPS(runner), nil
	case KindWindows:
		return NewWindows(runner), nil
	case KindSocket, "tcp", "network":
		return NewSocket(address)
	}
	return nil, fmt.Errorf("unknown printer backend %q", kind)
}

// Auto maps a GOOS value to its spooler backend.
func Auto(goos string, runner Runner) (Backend, error) {
	switch goos {
	case "windows":
		return NewWindows(runner), nil
	case "darwin", "linux", "freebsd", "openbsd", "netbsd":
		return NewCUPS(runner), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
}
