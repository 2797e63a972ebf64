package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/invoice-scanner/internal/async"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/display"
	"github.com/joseph-ayodele/invoice-scanner/internal/export"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
	"github.com/joseph-ayodele/invoice-scanner/internal/metrics"
	"github.com/joseph-ayodele/invoice-scanner/internal/ocr"
	"github.com/joseph-ayodele/invoice-scanner/internal/patterns"
	"github.com/joseph-ayodele/invoice-scanner/internal/pipeline"
	"github.com/joseph-ayodele/invoice-scanner/internal/repository"
	"github.com/joseph-ayodele/invoice-scanner/internal/server"
)

var args struct {
	ShowTable      bool          `arg:"--show-table" help:"print the invoice table to stdout whenever it changes"`
	HealthInterval time.Duration `arg:"--health-interval" default:"15s" help:"how often the store is probed for the gRPC health service"`
}

func main() {
	arg.MustParse(&args)

	cfg, err := common.LoadConfig()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	set := patterns.Default()
	if cfg.Store.PatternsFile != "" {
		if set, err = patterns.LoadFile(cfg.Store.PatternsFile); err != nil {
			logger.Error("invalid pattern file", "path", cfg.Store.PatternsFile, "error", err)
			os.Exit(2)
		}
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repoCfg := repository.Config{
		Location:        cfg.Store.Location,
		InsertStatement: cfg.Store.InsertStatement,
		DialTimeout:     5 * time.Second,
	}
	repo := repository.NewInvoiceRepository(repoCfg, logger)
	if cfg.Store.EnsureSchema {
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("ensure schema failed", "error", err)
			os.Exit(1)
		}
	} else if err := repo.CheckSchema(ctx); err != nil {
		logger.Error("invoices table check failed", "error", err)
		os.Exit(1)
	}
	checkStore := func(ctx context.Context) error {
		return repository.HealthCheck(ctx, repoCfg, 3*time.Second, logger)
	}
	if err := checkStore(ctx); err != nil {
		logger.Warn("store not reachable at startup", "error", err)
	} else {
		logger.Info("DB health OK")
	}

	// Display context: a terminal table, or nothing.
	loop := display.NewLoop(16)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go loop.Run(loopCtx)
	var notifier display.Notifier = display.NopNotifier{}
	var refresher *async.Refresher
	if args.ShowTable {
		term := display.NewTerminal(os.Stdout)
		notifier = display.OnDisplay(loop, term)
		refresher = async.NewRefresher(repo, term, loop, notifier, logger)
		refresher.Request()
	}
	requestRefresh := func() {
		if refresher != nil {
			refresher.Request()
		}
	}

	decoder := ocr.NewDecoder(ocr.Config{
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		TessdataDir:   cfg.OCR.TessdataDir,
		HeicConverter: cfg.OCR.HeicConverter,
		Timeout:       cfg.OCR.Timeout,
	}, logger)
	proc := pipeline.NewProcessor(logger, decoder, extract.NewExtractor(set, logger), repo, notifier)
	m := metrics.New()
	proc.Recorder = m

	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.JobTimeout),
		async.WithOnDone(func(_ async.Job, out pipeline.Outcome, _ error) {
			if out.Persisted() {
				requestRefresh()
			}
		}),
	)
	m.TrackQueue(queue.Len)

	if cfg.Server.WatchDir != "" {
		ingestor := ingest.NewFSIngestor(queue, logger)
		ingestor.Dedupe = true
		go func() {
			err := ingestor.Watch(ctx, ingest.WatchConfig{
				Roots:       []string{cfg.Server.WatchDir},
				InitialScan: true,
				Debounce:    500 * time.Millisecond,
				SkipHidden:  true,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	// gRPC server: health only
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)
	go probeHealth(ctx, hs, checkStore, args.HealthInterval, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("grpc listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("gRPC health serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve", "error", err)
		}
	}()

	api := server.New(proc, repo, export.NewService(repo, logger), checkStore, logger)
	api.OnPersisted = requestRefresh
	api.MountMetrics(m.Handler())
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	hs.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	if refresher != nil {
		refresher.Shutdown(shutdownCtx)
	}
	stopLoop()
	<-loop.Done()
	logger.Info("stopped.")
}

// probeHealth mirrors store reachability into the gRPC health service.
func probeHealth(ctx context.Context, hs *health.Server, check server.HealthFunc, every time.Duration, logger *slog.Logger) {
	if every <= 0 {
		every = 15 * time.Second
	}
	set := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if err := check(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("store health check failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
	}
	set()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			set()
		}
	}
}
