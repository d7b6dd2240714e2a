package printer

import (
	"context"
	"strings"
)

// Windows copies artifacts to a shared print queue.
type Windows struct {
	runner Runner
}

func NewWindows(runner Runner) *Windows {
	return &Windows{runner: runner}
}

func (w *Windows) Name() string { return KindWindows }

func (w *Windows) Print(ctx context.Context, job Job) (string, error) {
	if job.Raw {
		return w.runner.Run(ctx, "cmd", "/C", "copy", "/b", job.Path, `\\localhost\`+job.Printer)
	}
	return w.runner.Run(ctx, "notepad", "/p", job.Path)
}

func (w *Windows) ListPrinters(ctx context.Context) ([]Device, error) {
	out, err := w.runner.Run(ctx, "wmic", "printer", "get", "name")
	if err != nil {
		return nil, err
	}
	return parseWmicNames(out), nil
}

func (w *Windows) Status(ctx context.Context, printer string) (string, error) {
	return w.runner.Run(ctx, "wmic", "printer", "where", "name='"+printer+"'", "get", "status")
}

// parseWmicNames reads the single "Name" column wmic prints.
func parseWmicNames(out string) []Device {
	var devices []Device
	for i, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || (i == 0 && strings.EqualFold(name, "Name")) {
			continue
		}
		devices = append(devices, Device{Name: name, Platform: "windows"})
	}
	return devices
}
