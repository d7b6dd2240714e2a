// Package diagnostics serves the station's operator endpoints: health, test
// prints, printer discovery and receipt previews.
package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Riboost-Studio/print-station/internal/preview"
	"github.com/Riboost-Studio/print-station/internal/printer"
	"github.com/Riboost-Studio/print-station/internal/receipt"
	"github.com/Riboost-Studio/print-station/internal/station"
)

// Station is what the endpoints drive.
type Station interface {
	Status() station.Status
	TestPrint(ctx context.Context) printer.Result
	PrintText(ctx context.Context, text string, opts receipt.TextOptions) printer.Result
	PrintPlain(ctx context.Context, text string) printer.Result
	Printers(ctx context.Context) ([]printer.Device, error)
	PrinterStatus(ctx context.Context) (string, error)
	SampleReceipt() []byte
	Columns() int
}

type Server struct {
	station  Station
	logger   *log.Logger
	snapshot func(ctx context.Context, html []byte) ([]byte, error)
}

func New(st Station, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{station: st, logger: logger, snapshot: preview.Snapshot}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)
			s.logger.Printf("[diagnostics] %s %s %d %s", req.Method, req.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
		})
	})

	r.Get("/health", s.handleHealth)
	r.Post("/test-print", s.handleTestPrint)
	r.Post("/test-simple", s.handleTestSimple)
	r.Post("/print-text", s.handlePrintText)
	r.Get("/printers", s.handlePrinters)
	r.Get("/printers/status", s.handlePrinterStatus)
	r.Get("/preview", s.handlePreview)
	r.Get("/preview.png", s.handlePreviewPNG)
	return r
}

// Run serves on addr until ctx is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("[diagnostics] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type healthResponse struct {
	Status        string         `json:"status"`
	Station       station.Status `json:"station"`
	PrinterStatus string         `json:"printerStatus,omitempty"`
	PrinterError  string         `json:"printerError,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Station: s.station.Status(), Timestamp: time.Now()}
	status, err := s.station.PrinterStatus(r.Context())
	if err != nil {
		resp.Status = "degraded"
		resp.PrinterError = err.Error()
	}
	resp.PrinterStatus = status
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTestPrint(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.station.TestPrint(r.Context()))
}

func (s *Server) handleTestSimple(w http.ResponseWriter, r *http.Request) {
	text := "TEST STAMPA\n" + s.station.Status().Name + "\n" + time.Now().Format("02/01/2006 15:04:05") + "\n"
	writeResult(w, s.station.PrintPlain(r.Context(), text))
}

type printTextRequest struct {
	Text    string              `json:"text"`
	Options receipt.TextOptions `json:"options"`
}

func (s *Server) handlePrintText(w http.ResponseWriter, r *http.Request) {
	var req printTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, `missing "text" field`)
		return
	}
	writeResult(w, s.station.PrintText(r.Context(), req.Text, req.Options))
}

func (s *Server) handlePrinters(w http.ResponseWriter, r *http.Request) {
	devices, err := s.station.Printers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if devices == nil {
		devices = []printer.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "printers": devices})
}

func (s *Server) handlePrinterStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.station.PrinterStatus(r.Context())
	if errors.Is(err, printer.ErrPrinterNotConfigured) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": status})
}

func (s *Server) previewHTML() ([]byte, error) {
	return preview.HTML(s.station.SampleReceipt(), "Anteprima scontrino", s.station.Columns())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	page, err := s.previewHTML()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handlePreviewPNG(w http.ResponseWriter, r *http.Request) {
	page, err := s.previewHTML()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	img, err := s.snapshot(ctx, page)
	if errors.Is(err, preview.ErrNoBrowser) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

func writeResult(w http.ResponseWriter, res printer.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
		if errors.Is(res.Err, printer.ErrPrinterNotConfigured) {
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, res)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
