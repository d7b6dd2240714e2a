package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/print-station/internal/preview"
	"github.com/Riboost-Studio/print-station/internal/printer"
	"github.com/Riboost-Studio/print-station/internal/receipt"
	"github.com/Riboost-Studio/print-station/internal/station"
)

type fakeStation struct {
	configured bool
	lastText   string
	lastOpts   receipt.TextOptions
	plain      string
}

func (f *fakeStation) Status() station.Status {
	return station.Status{StationID: "cassa-1", Name: "Cassa 1", Presence: "active", Configured: f.configured}
}

func (f *fakeStation) result() printer.Result {
	if !f.configured {
		return printer.Result{JobID: "j", Error: printer.ErrPrinterNotConfigured.Error(), Err: printer.ErrPrinterNotConfigured}
	}
	return printer.Result{Success: true, JobID: "j", Output: "request id is EPSON-7"}
}

func (f *fakeStation) TestPrint(context.Context) printer.Result { return f.result() }

func (f *fakeStation) PrintText(_ context.Context, text string, opts receipt.TextOptions) printer.Result {
	f.lastText, f.lastOpts = text, opts
	return f.result()
}

func (f *fakeStation) PrintPlain(_ context.Context, text string) printer.Result {
	f.plain = text
	return f.result()
}

func (f *fakeStation) Printers(context.Context) ([]printer.Device, error) {
	return []printer.Device{{Name: "EPSON_TM_T20", Status: "idle", Platform: "linux"}}, nil
}

func (f *fakeStation) PrinterStatus(context.Context) (string, error) {
	if !f.configured {
		return "", printer.ErrPrinterNotConfigured
	}
	return "printer EPSON_TM_T20 is idle.", nil
}

func (f *fakeStation) SampleReceipt() []byte {
	opts := receipt.DefaultOptions()
	opts.Location = time.UTC
	c, _ := receipt.New(opts)
	return c.Compile(receipt.SampleOrder("cassa-1", time.Date(2026, time.March, 14, 19, 30, 0, 0, time.UTC)))
}

func (f *fakeStation) Columns() int { return 48 }

func newTestServer(st *fakeStation) *Server {
	return New(st, log.New(io.Discard, "", 0))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeStation{configured: true}).Handler()
	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "cassa-1", resp.Station.StationID)
	assert.Contains(t, resp.PrinterStatus, "idle")

	h = newTestServer(&fakeStation{}).Handler()
	rec = do(t, h, http.MethodGet, "/health", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestTestPrint(t *testing.T) {
	rec := do(t, newTestServer(&fakeStation{configured: true}).Handler(), http.MethodPost, "/test-print", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	rec = do(t, newTestServer(&fakeStation{}).Handler(), http.MethodPost, "/test-print", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "printer name not configured")
}

func TestPrintText(t *testing.T) {
	st := &fakeStation{configured: true}
	h := newTestServer(st).Handler()

	rec := do(t, h, http.MethodPost, "/print-text", `{"text":"Ciao","options":{"bold":true,"centered":true}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ciao", st.lastText)
	assert.True(t, st.lastOpts.Bold)
	assert.True(t, st.lastOpts.Centered)

	rec = do(t, h, http.MethodPost, "/print-text", `{"options":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/print-text", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/test-simple", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, st.plain, "Cassa 1")
}

func TestPrinters(t *testing.T) {
	h := newTestServer(&fakeStation{configured: true}).Handler()
	rec := do(t, h, http.MethodGet, "/printers", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "EPSON_TM_T20")

	rec = do(t, h, http.MethodGet, "/printers/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, newTestServer(&fakeStation{}).Handler(), http.MethodGet, "/printers/status", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPreview(t *testing.T) {
	s := newTestServer(&fakeStation{configured: true})
	rec := do(t, s.Handler(), http.MethodGet, "/preview", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "RIEPILOGO ORDINE")

	s.snapshot = func(context.Context, []byte) ([]byte, error) { return []byte("\x89PNG"), nil }
	rec = do(t, s.Handler(), http.MethodGet, "/preview.png", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	s.snapshot = func(context.Context, []byte) ([]byte, error) { return nil, preview.ErrNoBrowser }
	rec = do(t, s.Handler(), http.MethodGet, "/preview.png", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.snapshot = func(context.Context, []byte) ([]byte, error) { return nil, errors.New("chrome crashed") }
	rec = do(t, s.Handler(), http.MethodGet, "/preview.png", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestServer(&fakeStation{configured: true})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
