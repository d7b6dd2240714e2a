package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare number is major units", `3.5`, "3.50"},
		{"numeric string", `"2.50"`, "2.50"},
		{"large bare number stays major", `150`, "150.00"},
		{"tagged minor", `{"value": 350, "unit": "minor"}`, "3.50"},
		{"tagged major", `{"value": "12.3", "unit": "major"}`, "12.30"},
		{"null", `null`, "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m Money
			require.NoError(t, json.Unmarshal([]byte(tc.in), &m))
			assert.Equal(t, tc.want, m.Fixed())
		})
	}
}

func TestMoneyUnmarshalRejectsUnknownUnit(t *testing.T) {
	var m Money
	err := json.Unmarshal([]byte(`{"value": 1, "unit": "cents"}`), &m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown unit")
}

func TestItemLineTotal(t *testing.T) {
	item := Item{Name: "A", Quantity: 3, Price: MustMoney("0.10")}
	assert.Equal(t, "0.30", item.LineTotal().Fixed())
	assert.Equal(t, "1.25", FromMinor(125).Fixed())
}

func TestPrintStatusApply(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	failed := PrintStatus{}.Apply(PrintAttempt{Error: "lp: not found", At: at, StationID: "cassa1"})
	assert.False(t, failed.Printed)
	assert.Equal(t, 1, failed.Attempts)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "lp: not found", *failed.Error)
	assert.Nil(t, failed.PrintedBy)

	printed := failed.Apply(PrintAttempt{Success: true, At: at.Add(time.Minute), StationID: "cassa1"})
	assert.True(t, printed.Printed)
	assert.Equal(t, 2, printed.Attempts)
	assert.Nil(t, printed.Error)
	require.NotNil(t, printed.PrintedBy)
	assert.Equal(t, "cassa1", *printed.PrintedBy)

	again := printed.Apply(PrintAttempt{Error: "jam", At: at.Add(2 * time.Minute)})
	assert.True(t, again.Printed, "printed is terminal")
	assert.Equal(t, 3, again.Attempts)
	require.NotNil(t, again.Error)
}

func TestStationStatsCountPrinted(t *testing.T) {
	day1 := time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC)
	stats := StationStats{}.CountPrinted(day1).CountPrinted(day1.Add(time.Hour))
	assert.Equal(t, 2, stats.TotalPrinted)
	assert.Equal(t, 2, stats.TodayPrinted)

	stats = stats.CountPrinted(day1.Add(26 * time.Hour))
	assert.Equal(t, 3, stats.TotalPrinted)
	assert.Equal(t, 1, stats.TodayPrinted)
}

func TestStationStale(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := Station{Online: true, LastPing: now.Add(-2 * time.Minute)}
	assert.True(t, s.Stale(now, time.Minute))
	assert.False(t, s.Stale(now, 5*time.Minute))
	s.Online = false
	assert.False(t, s.Stale(now, time.Minute))
}

func TestDurationDecoding(t *testing.T) {
	var cfg SystemConfig
	require.NoError(t, json.Unmarshal([]byte(`{"cleanupDelay": 10000, "heartbeatInterval": "30s"}`), &cfg))
	assert.Equal(t, 10*time.Second, cfg.CleanupDelay.Std())
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval.Std())

	out, err := json.Marshal(cfg.HeartbeatInterval)
	require.NoError(t, err)
	assert.Equal(t, `"30s"`, string(out))
}
