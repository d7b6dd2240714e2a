package printer

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"
)

// DefaultRawPort is the JetDirect port thermal printers listen on.
const DefaultRawPort = 9100

// Socket writes artifacts straight to a network printer over TCP, bypassing
// the OS spooler.
type Socket struct {
	Address     string
	DialTimeout time.Duration
	// Settle is how long the connection stays open after the write so the
	// printer can drain its buffer.
	Settle time.Duration
	// Logger defaults to the dispatcher's logger.
	Logger *log.Logger
}

// NewSocket targets host or host:port. The port defaults to 9100.
func NewSocket(address string) (*Socket, error) {
	if address == "" {
		return nil, fmt.Errorf("socket backend requires a printer address")
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, strconv.Itoa(DefaultRawPort))
	}
	return &Socket{
		Address:     address,
		DialTimeout: 5 * time.Second,
		Settle:      500 * time.Millisecond,
	}, nil
}

func (s *Socket) Name() string { return KindSocket }

func (s *Socket) Print(ctx context.Context, job Job) (string, error) {
	data, err := os.ReadFile(job.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}

	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[%s] Sending %d bytes to %s", job.Printer, len(data), s.Address)

	dialer := net.Dialer{Timeout: s.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.Address)
	if err != nil {
		return "", fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	n, err := conn.Write(data)
	if err != nil {
		return "", fmt.Errorf("write failed: %w", err)
	}

	select {
	case <-time.After(s.Settle):
	case <-ctx.Done():
	}
	return fmt.Sprintf("sent %d bytes to %s", n, s.Address), nil
}

// ListPrinters scans the local /24 for devices answering on the raw port.
func (s *Socket) ListPrinters(ctx context.Context) ([]Device, error) {
	subnet, err := LocalSubnet()
	if err != nil {
		return nil, err
	}
	_, portStr, _ := net.SplitHostPort(s.Address)
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = DefaultRawPort
	}
	var devices []Device
	for _, addr := range Discover(ctx, subnet, port) {
		devices = append(devices, Device{Name: addr, Status: "reachable", Platform: KindSocket})
	}
	return devices, nil
}

func (s *Socket) Status(ctx context.Context, printer string) (string, error) {
	if err := probe(ctx, s.Address, s.DialTimeout); err != nil {
		return "", fmt.Errorf("%s unreachable: %w", s.Address, err)
	}
	return fmt.Sprintf("%s reachable at %s", printer, s.Address), nil
}
