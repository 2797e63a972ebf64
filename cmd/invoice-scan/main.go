package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/joseph-ayodele/invoice-scanner/internal/async"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/display"
	"github.com/joseph-ayodele/invoice-scanner/internal/export"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
	"github.com/joseph-ayodele/invoice-scanner/internal/ocr"
	"github.com/joseph-ayodele/invoice-scanner/internal/patterns"
	"github.com/joseph-ayodele/invoice-scanner/internal/pipeline"
	"github.com/joseph-ayodele/invoice-scanner/internal/repository"
)

var args struct {
	Paths         []string `arg:"positional,required" help:"documents or directories to scan"`
	Out           string   `arg:"-o,--out" help:"also write the stored invoices to this XLSX file"`
	IncludeHidden bool     `arg:"--include-hidden" help:"descend into hidden files and directories"`
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, a ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, a...); err != nil {
		fmt.Printf(format, a...)
	}
}

func main() {
	arg.MustParse(&args)

	cfg, err := common.LoadConfig()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log)

	set := patterns.Default()
	if cfg.Store.PatternsFile != "" {
		if set, err = patterns.LoadFile(cfg.Store.PatternsFile); err != nil {
			printError("Error: %v\n", err)
			os.Exit(2)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	repo := repository.NewInvoiceRepository(repository.Config{
		Location:        cfg.Store.Location,
		InsertStatement: cfg.Store.InsertStatement,
		DialTimeout:     5 * time.Second,
	}, logger)
	if cfg.Store.EnsureSchema {
		if err := repo.EnsureSchema(ctx); err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
	} else if err := repo.CheckSchema(ctx); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	// The loop goroutine owns the terminal.
	term := display.NewTerminal(os.Stdout)
	loop := display.NewLoop(16)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go loop.Run(loopCtx)
	notifier := display.OnDisplay(loop, term)

	refresher := async.NewRefresher(repo, term, loop, notifier, logger)

	decoder := ocr.NewDecoder(ocr.Config{
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		TessdataDir:   cfg.OCR.TessdataDir,
		HeicConverter: cfg.OCR.HeicConverter,
		Timeout:       cfg.OCR.Timeout,
	}, logger)
	proc := pipeline.NewProcessor(logger, decoder, extract.NewExtractor(set, logger), repo, notifier)

	var failed atomic.Int32
	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.JobTimeout),
		async.WithOnDone(func(_ async.Job, out pipeline.Outcome, err error) {
			if err != nil {
				failed.Add(1)
			}
			if out.Persisted() {
				refresher.Request()
			}
		}),
	)

	ingestor := ingest.NewFSIngestor(queue, logger)
	for _, p := range args.Paths {
		fi, err := os.Stat(p)
		if err != nil {
			printError("Error: %v\n", err)
			failed.Add(1)
			continue
		}
		if fi.IsDir() {
			if _, stats, err := ingestor.IngestDirectory(ctx, p, !args.IncludeHidden); err != nil {
				printError("Error: %v\n", err)
				failed.Add(1)
			} else {
				failed.Add(int32(stats.Failed))
			}
			continue
		}
		if _, err := ingestor.IngestPath(ctx, p); err != nil {
			printError("Error: %s: %v\n", filepath.Base(p), err)
			failed.Add(1)
		}
	}

	queue.Shutdown(ctx)
	// show the table even when nothing new was stored
	refresher.Request()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	refresher.Shutdown(shutdownCtx)
	cancel()
	stopLoop()
	<-loop.Done()

	if args.Out != "" {
		data, err := export.NewService(repo, logger).InvoicesXLSX(context.Background())
		if err == nil {
			err = os.WriteFile(args.Out, data, 0o644)
		}
		if err != nil {
			printError("Error: export: %v\n", err)
			os.Exit(1)
		}
		logger.Info("export written", "path", args.Out)
	}

	if failed.Load() > 0 {
		os.Exit(1)
	}
}
