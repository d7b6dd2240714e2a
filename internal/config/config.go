// Package config loads the station configuration: a JSON file created with
// defaults on first run, then PRINT_STATION_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Riboost-Studio/print-station/internal/escpos"
	"github.com/Riboost-Studio/print-station/internal/model"
	"github.com/Riboost-Studio/print-station/internal/printer"
	"github.com/Riboost-Studio/print-station/internal/receipt"
)

const DefaultPath = "config/config.json"

// Default is the configuration written on first run.
func Default() model.Config {
	opts := receipt.DefaultOptions()
	return model.Config{
		Station: model.StationConfig{
			ID:   "cassa-1",
			Name: "Cassa 1",
		},
		Printer: model.PrinterConfig{
			Name:        model.PlaceholderPrinterName,
			Backend:     printer.KindAuto,
			Raw:         true,
			Description: "Thermal receipt printer",
		},
		Receipt: model.ReceiptConfig{
			Title:         opts.Title,
			Footer:        opts.Footer,
			Width:         opts.Width,
			Currency:      opts.Currency,
			Separator:     opts.SeparatorChar,
			ItemSeparator: opts.ItemSeparatorChar,
			LineCuts:      opts.LineCuts,
			CodePage:      opts.CodePage.String(),
			TimeZone:      "Local",
		},
		System: model.SystemConfig{
			TempDir:           "./temp",
			CleanupDelay:      model.Duration(printer.DefaultCleanupDelay),
			PrintTimeout:      model.Duration(printer.DefaultTimeout),
			HeartbeatInterval: model.Duration(30 * time.Second),
			ResubscribeDelay:  model.Duration(5 * time.Second),
		},
		Store: model.StoreConfig{
			Driver:       "sqlite",
			Path:         "data/station.db",
			PollInterval: model.Duration(500 * time.Millisecond),
		},
		Diagnostics: model.DiagnosticsConfig{
			Addr: "127.0.0.1:3001",
		},
	}
}

// Load reads path over the defaults, creating the file when it does not
// exist, applies environment overrides and validates the result. created
// reports whether a new file was written.
func Load(path string) (cfg model.Config, created bool, err error) {
	if path == "" {
		path = DefaultPath
	}
	cfg = Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return cfg, false, err
		}
		created = true
	case err != nil:
		return cfg, false, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, false, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, created, fmt.Errorf("parse env: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, created, err
	}
	return cfg, created, nil
}

// Save writes cfg as indented JSON, creating the directory.
func Save(path string, cfg model.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the station cannot start with. A
// placeholder printer name is not an error; see Warnings.
func Validate(cfg model.Config) error {
	var errs []error
	if strings.TrimSpace(cfg.Station.ID) == "" {
		errs = append(errs, errors.New("station.id is required"))
	}
	switch strings.ToLower(cfg.Printer.Backend) {
	case "", printer.KindAuto, printer.KindCUPS, "lp", printer.KindWindows:
	case printer.KindSocket, "tcp", "network":
		if cfg.Printer.Address == "" {
			errs = append(errs, errors.New("printer.address is required for the socket backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("printer.backend %q is not one of auto, cups, windows, socket", cfg.Printer.Backend))
	}
	if _, err := ReceiptOptions(cfg.Receipt); err != nil {
		errs = append(errs, err)
	}
	switch cfg.Store.Driver {
	case "memory":
	case "sqlite":
		if cfg.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite store"))
		}
	case "remote":
		if cfg.Store.APIURL == "" || cfg.Store.WSURL == "" {
			errs = append(errs, errors.New("store.apiUrl and store.wsUrl are required for the remote store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, sqlite, remote", cfg.Store.Driver))
	}
	if cfg.System.PrintTimeout < 0 || cfg.System.CleanupDelay < 0 {
		errs = append(errs, errors.New("system durations must not be negative"))
	}
	return errors.Join(errs...)
}

// Warnings lists settings that let the station start but will fail jobs.
func Warnings(cfg model.Config) []string {
	var warnings []string
	name := strings.TrimSpace(cfg.Printer.Name)
	if name == "" || name == model.PlaceholderPrinterName {
		warnings = append(warnings, "printer.name is not configured: every print job will fail until it is set")
	}
	return warnings
}

// ReceiptOptions turns the receipt section into compiler options, loading
// the logo when one is configured.
func ReceiptOptions(rc model.ReceiptConfig) (receipt.Options, error) {
	opts := receipt.DefaultOptions()
	if rc.Title != "" {
		opts.Title = rc.Title
	}
	opts.Footer = rc.Footer
	if rc.Width != 0 {
		opts.Width = rc.Width
	}
	if rc.Currency != "" {
		opts.Currency = rc.Currency
	}
	if rc.Separator != "" {
		opts.SeparatorChar = rc.Separator
	}
	if rc.ItemSeparator != "" {
		opts.ItemSeparatorChar = rc.ItemSeparator
	}
	opts.LineCuts = rc.LineCuts

	if rc.CodePage != "" {
		cp, err := escpos.ParseCodePage(rc.CodePage)
		if err != nil {
			return opts, fmt.Errorf("receipt.codePage: %w", err)
		}
		opts.CodePage = cp
	}

	if rc.TimeZone != "" {
		loc, err := time.LoadLocation(rc.TimeZone)
		if err != nil {
			return opts, fmt.Errorf("receipt.timeZone: %w", err)
		}
		opts.Location = loc
	}

	if rc.LogoPath != "" {
		logo, err := loadLogo(rc.LogoPath)
		if err != nil {
			return opts, fmt.Errorf("receipt.logoPath: %w", err)
		}
		opts.Logo = logo
		if opts.Width <= 32 {
			opts.LogoDots = escpos.Dots58mm
		}
	}

	if _, err := receipt.New(opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func loadLogo(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	return img, nil
}
