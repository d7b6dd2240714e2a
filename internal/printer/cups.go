package printer

import (
	"context"
	"regexp"
	"runtime"
	"strings"
)

// CUPS prints through lp on Linux and macOS.
type CUPS struct {
	runner Runner
}

func NewCUPS(runner Runner) *CUPS {
	return &CUPS{runner: runner}
}

func (c *CUPS) Name() string { return KindCUPS }

func (c *CUPS) Print(ctx context.Context, job Job) (string, error) {
	args := []string{"-d", job.Printer}
	if job.Raw {
		args = append(args, "-o", "raw")
	}
	args = append(args, job.Path)
	return c.runner.Run(ctx, "lp", args...)
}

func (c *CUPS) ListPrinters(ctx context.Context) ([]Device, error) {
	out, err := c.runner.Run(ctx, "lpstat", "-p")
	if err != nil {
		return nil, err
	}
	return parseLpstat(out, runtime.GOOS), nil
}

func (c *CUPS) Status(ctx context.Context, printer string) (string, error) {
	return c.runner.Run(ctx, "lpstat", "-p", printer)
}

var lpstatPrinter = regexp.MustCompile(`^printer (\S+)`)

// parseLpstat reads lines like "printer EPSON_TM_T20 is idle.  enabled since ...".
func parseLpstat(out, platform string) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		m := lpstatPrinter.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		status := "unknown"
		switch {
		case strings.Contains(line, "idle"):
			status = "idle"
		case strings.Contains(line, "printing"):
			status = "printing"
		case strings.Contains(line, "disabled"):
			status = "disabled"
		}
		devices = append(devices, Device{Name: m[1], Status: status, Platform: platform})
	}
	return devices
}
