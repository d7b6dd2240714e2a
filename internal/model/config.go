package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// --- Configuration Structures ---

type Config struct {
	Station     StationConfig     `json:"station"`
	Printer     PrinterConfig     `json:"printer"`
	Receipt     ReceiptConfig     `json:"receipt"`
	System      SystemConfig      `json:"system"`
	Store       StoreConfig       `json:"store"`
	Diagnostics DiagnosticsConfig `json:"diagnostics"`
}

type StationConfig struct {
	ID   string `json:"id" env:"PRINT_STATION_ID"`
	Name string `json:"name" env:"PRINT_STATION_NAME"`
}

type PrinterConfig struct {
	Name        string `json:"name" env:"PRINT_STATION_PRINTER_NAME"`
	Backend     string `json:"backend" env:"PRINT_STATION_PRINTER_BACKEND"` // auto, cups, windows, socket
	Address     string `json:"address,omitempty" env:"PRINT_STATION_PRINTER_ADDRESS"`
	Raw         bool   `json:"raw" env:"PRINT_STATION_PRINTER_RAW"`
	Description string `json:"description,omitempty"`
}

type ReceiptConfig struct {
	Title         string `json:"title" env:"PRINT_STATION_RECEIPT_TITLE"`
	Footer        string `json:"footer" env:"PRINT_STATION_RECEIPT_FOOTER"`
	Width         int    `json:"width" env:"PRINT_STATION_RECEIPT_WIDTH"`
	Currency      string `json:"currency" env:"PRINT_STATION_RECEIPT_CURRENCY"`
	Separator     string `json:"separator" env:"PRINT_STATION_RECEIPT_SEPARATOR"`
	ItemSeparator string `json:"itemSeparator" env:"PRINT_STATION_RECEIPT_ITEM_SEPARATOR"`
	LineCuts      bool   `json:"lineCuts" env:"PRINT_STATION_RECEIPT_LINE_CUTS"`
	CodePage      string `json:"codePage" env:"PRINT_STATION_RECEIPT_CODE_PAGE"`
	LogoPath      string `json:"logoPath,omitempty" env:"PRINT_STATION_RECEIPT_LOGO"`
	TimeZone      string `json:"timeZone" env:"PRINT_STATION_RECEIPT_TIME_ZONE"`
}

type SystemConfig struct {
	TempDir           string   `json:"tempDir" env:"PRINT_STATION_TEMP_DIR"`
	CleanupDelay      Duration `json:"cleanupDelay" env:"PRINT_STATION_CLEANUP_DELAY"`
	PrintTimeout      Duration `json:"printTimeout" env:"PRINT_STATION_PRINT_TIMEOUT"`
	HeartbeatInterval Duration `json:"heartbeatInterval" env:"PRINT_STATION_HEARTBEAT_INTERVAL"`
	ResubscribeDelay  Duration `json:"resubscribeDelay" env:"PRINT_STATION_RESUBSCRIBE_DELAY"`
}

type StoreConfig struct {
	Driver       string   `json:"driver" env:"PRINT_STATION_STORE"` // memory, sqlite, remote
	Path         string   `json:"path,omitempty" env:"PRINT_STATION_STORE_PATH"`
	APIURL       string   `json:"apiUrl,omitempty" env:"PRINT_STATION_API_URL"`
	WSURL        string   `json:"wsUrl,omitempty" env:"PRINT_STATION_WS_URL"`
	APIKey       string   `json:"apiKey,omitempty" env:"PRINT_STATION_API_KEY"`
	PollInterval Duration `json:"pollInterval" env:"PRINT_STATION_STORE_POLL_INTERVAL"`
}

type DiagnosticsConfig struct {
	Addr string `json:"addr" env:"PRINT_STATION_DIAGNOSTICS_ADDR"`
}

// Duration reads "30s" style strings, or plain numbers as milliseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	s := string(bytes.TrimSpace(text))
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return d.UnmarshalText([]byte(s))
	}
	return d.UnmarshalText(data)
}
