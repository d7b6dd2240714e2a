package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Riboost-Studio/print-station/internal/completion"
	"github.com/Riboost-Studio/print-station/internal/config"
	"github.com/Riboost-Studio/print-station/internal/consumer"
	"github.com/Riboost-Studio/print-station/internal/diagnostics"
	"github.com/Riboost-Studio/print-station/internal/model"
	"github.com/Riboost-Studio/print-station/internal/presence"
	"github.com/Riboost-Studio/print-station/internal/preview"
	"github.com/Riboost-Studio/print-station/internal/printer"
	"github.com/Riboost-Studio/print-station/internal/receipt"
	"github.com/Riboost-Studio/print-station/internal/station"
	"github.com/Riboost-Studio/print-station/internal/store"
	"github.com/Riboost-Studio/print-station/internal/store/memory"
	"github.com/Riboost-Studio/print-station/internal/store/remote"
	"github.com/Riboost-Studio/print-station/internal/store/sqlite"
	"github.com/Riboost-Studio/print-station/internal/telemetry"
)

const (
	appName    = "Print Station"
	appVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the JSON configuration file")
	testPrint := flag.Bool("test-print", false, "print the sample receipt and exit")
	listPrinters := flag.Bool("list-printers", false, "list the printers the OS reports and exit")
	printerStatus := flag.Bool("printer-status", false, "show the configured printer status and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *testPrint, *listPrinters, *printerStatus); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, configPath string, testPrint, listPrinters, printerStatus bool) error {
	fmt.Printf("--- %s v%s ---\n", appName, appVersion)

	// 1. Load Configuration
	cfg, created, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if created {
		log.Printf("Created default configuration at %s", configPath)
	}
	for _, w := range config.Warnings(cfg) {
		log.Printf("WARNING: %s", w)
	}
	logSystem()

	// 2. Printer and receipt
	backend, err := printer.NewBackend(cfg.Printer.Backend, cfg.Printer.Address, nil)
	if err != nil {
		return err
	}
	dispatcher := printer.NewDispatcher(backend, printer.Options{
		PrinterName:  cfg.Printer.Name,
		Raw:          cfg.Printer.Raw,
		TempDir:      cfg.System.TempDir,
		CleanupDelay: cfg.System.CleanupDelay.Std(),
		Timeout:      cfg.System.PrintTimeout.Std(),
	})
	opts, err := config.ReceiptOptions(cfg.Receipt)
	if err != nil {
		return err
	}
	compiler, err := receipt.New(opts)
	if err != nil {
		return err
	}

	switch {
	case listPrinters:
		devices, err := dispatcher.ListPrinters(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Found %d printer(s) via %s:\n", len(devices), backend.Name())
		for _, d := range devices {
			fmt.Printf("  %-30s %s\n", d.Name, d.Status)
		}
		return nil
	case printerStatus:
		status, err := dispatcher.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	case testPrint:
		defer dispatcher.Close()
		res := dispatcher.Dispatch(ctx, compiler.Compile(receipt.SampleOrder(cfg.Station.ID, time.Now())), "")
		if !res.Success {
			return fmt.Errorf("test print failed: %s", res.Error)
		}
		fmt.Printf("Test print sent (job %s): %s\n", res.JobID, res.Output)
		return nil
	}

	// 3. Telemetry
	shutdownTracing, err := telemetry.Setup(ctx, "print-station", cfg.Station.ID)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	// 4. Store
	st, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := log.Default()
	stationRecord := model.Station{
		ID:          cfg.Station.ID,
		Name:        cfg.Station.Name,
		PrinterName: cfg.Printer.Name,
		TempDir:     cfg.System.TempDir,
	}
	s := station.New(station.Deps{
		StationID: cfg.Station.ID,
		Name:      cfg.Station.Name,
		Consumer: consumer.New(st, cfg.Station.ID,
			consumer.WithResubscribeDelay(cfg.System.ResubscribeDelay.Std()),
			consumer.WithLogger(logger)),
		Compiler:   compiler,
		Dispatcher: dispatcher,
		Writer:     completion.New(st, st, cfg.Station.ID, logger),
		Presence:   presence.New(st, stationRecord, cfg.System.HeartbeatInterval.Std(), logger),
		Logger:     logger,
	})

	fmt.Printf("--- Station %s running (printer %q via %s, store %s) ---\n",
		cfg.Station.ID, cfg.Printer.Name, backend.Name(), cfg.Store.Driver)

	// 5. Run until interrupted
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(gctx) })
	if cfg.Diagnostics.Addr != "" {
		g.Go(func() error { return diagnostics.New(s, logger).Run(gctx, cfg.Diagnostics.Addr) })
	}
	err = g.Wait()
	fmt.Println("\nShutting down...")
	return err
}

func openStore(sc model.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.Open(sc.Path, sc.PollInterval.Std())
	case "remote":
		return remote.New(remote.Options{APIURL: sc.APIURL, WSURL: sc.WSURL, APIKey: sc.APIKey})
	}
	return nil, errors.New("unknown store driver: " + sc.Driver)
}

// logSystem reports what the preview endpoint can use. Printing does not
// need a browser.
func logSystem() {
	fmt.Printf("System: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if path, ok := preview.FindChrome(); ok {
		fmt.Printf("Chrome: %s (%s)\n", path, preview.ChromeVersion(path))
		return
	}
	log.Printf("Chrome not found, /preview.png is unavailable. %s", preview.InstallHint(runtime.GOOS))
}
