package config

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/print-station/internal/escpos"
	"github.com/Riboost-Studio/print-station/internal/model"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.json")

	cfg, created, err := Load(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.FileExists(t, path)
	assert.Equal(t, model.PlaceholderPrinterName, cfg.Printer.Name)
	assert.Equal(t, 30*time.Second, cfg.System.HeartbeatInterval.Std())
	assert.NotEmpty(t, Warnings(cfg))
	assert.Equal(t, "127.0.0.1:3001", cfg.Diagnostics.Addr)

	_, created, err = Load(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "station": {"id": "bar", "name": "Bar"},
  "printer": {"name": "POS-58", "backend": "cups", "raw": true},
  "receipt": {"width": 32, "currency": "EUR", "lineCuts": false, "timeZone": "Europe/Rome"},
  "system": {"cleanupDelay": 2000, "printTimeout": "15s"},
  "store": {"driver": "memory"}
}`), 0o644))

	t.Setenv("PRINT_STATION_PRINTER_NAME", "EPSON_TM_T20")
	t.Setenv("PRINT_STATION_HEARTBEAT_INTERVAL", "10s")

	cfg, created, err := Load(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "bar", cfg.Station.ID)
	assert.Equal(t, "EPSON_TM_T20", cfg.Printer.Name)
	assert.Equal(t, 2*time.Second, cfg.System.CleanupDelay.Std())
	assert.Equal(t, 15*time.Second, cfg.System.PrintTimeout.Std())
	assert.Equal(t, 10*time.Second, cfg.System.HeartbeatInterval.Std())
	assert.Equal(t, 5*time.Second, cfg.System.ResubscribeDelay.Std(), "unset keys keep defaults")
	assert.Empty(t, Warnings(cfg))

	opts, err := ReceiptOptions(cfg.Receipt)
	require.NoError(t, err)
	assert.Equal(t, 32, opts.Width)
	assert.False(t, opts.LineCuts)
	assert.Equal(t, "Europe/Rome", opts.Location.String())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	cfg.Station.ID = ""
	cfg.Printer.Backend = "socket"
	cfg.Store.Driver = "postgres"
	cfg.Receipt.CodePage = "ebcdic"
	err := Validate(cfg)
	require.Error(t, err)
	for _, want := range []string{"station.id", "printer.address", "store.driver", "receipt.codePage"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestReceiptOptionsLogo(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 8))
	img.Set(1, 1, color.Black)
	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	rc := Default().Receipt
	rc.LogoPath = path
	opts, err := ReceiptOptions(rc)
	require.NoError(t, err)
	require.NotNil(t, opts.Logo)
	assert.Equal(t, escpos.Dots80mm, opts.LogoDots)

	rc.LogoPath = filepath.Join(t.TempDir(), "missing.png")
	_, err = ReceiptOptions(rc)
	assert.Error(t, err)
}
