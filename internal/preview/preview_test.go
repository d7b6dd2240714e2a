package preview

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/print-station/internal/receipt"
)

func sampleReceipt(t *testing.T) []byte {
	t.Helper()
	opts := receipt.DefaultOptions()
	opts.Location = time.UTC
	c, err := receipt.New(opts)
	require.NoError(t, err)
	return c.Compile(receipt.SampleOrder("cassa-1", time.Date(2026, time.March, 14, 19, 30, 0, 0, time.UTC)))
}

func TestHTML(t *testing.T) {
	page, err := HTML(sampleReceipt(t), "Anteprima", 48)
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "<title>Anteprima</title>")
	assert.Contains(t, html, "RIEPILOGO ORDINE")
	assert.Contains(t, html, "Tiramisù")
	assert.Contains(t, html, `class="line center bold dh dw"`)
	// receipt plus SALATO, BAR and DOLCE segments
	assert.Equal(t, 4, strings.Count(html, `<div class="cut">`))
}

func TestHTMLRejectsTruncatedJob(t *testing.T) {
	_, err := HTML([]byte{0x1b}, "x", 48)
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	if _, ok := FindChrome(); !ok {
		t.Skip("no Chrome or Chromium installed")
	}
	page, err := HTML(sampleReceipt(t), "Anteprima", 48)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	data, err := Snapshot(ctx, page)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dy(), 100)
}

func TestCommonChromePaths(t *testing.T) {
	assert.NotEmpty(t, commonChromePaths("linux"))
	assert.Empty(t, commonChromePaths("plan9"))
	assert.Contains(t, InstallHint("darwin"), "brew")
}
