package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/IgnitionX7/pdf-processor-tool/internal/config"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pipeline"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the configured level.
func setupLogging(cfg *config.Config) {
	log.SetOutput(os.Stderr)
	if cfg.IsDebug() {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

// findPapers lists the PDF files under the input directory, sorted for
// deterministic processing order.
func findPapers(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var papers []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			papers = append(papers, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(papers)
	return papers, nil
}

// processAll fans the documents out over the configured number of
// workers. A document failure is logged and counted, not fatal.
func processAll(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, papers []string) int {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Jobs)

	failures := make([]bool, len(papers))
	for i, path := range papers {
		i, path := i, path
		g.Go(func() error {
			if err := processOne(ctx, cfg, p, path); err != nil {
				log.Printf("%s: %v", path, err)
				failures[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, f := range failures {
		if f {
			failed++
		}
	}
	return failed
}

func processOne(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := pdfdoc.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	res, err := p.Process(ctx, doc)
	if res != nil {
		// An interrupted run still yields the pages that completed;
		// persist them before reporting the error.
		if werr := p.WriteArtifacts(res, cfg.OutputDir); werr != nil && err == nil {
			err = werr
		}
	}
	if err != nil {
		return err
	}
	log.Printf("%s: %d pages, %d elements, %dms",
		filepath.Base(path), res.Report.Pages, res.Report.ElementCount, res.Report.DurationMS)
	return nil
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}
	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	p, err := pipeline.New(cfg.Pipeline(), log.Default())
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	papers, err := findPapers(cfg.InputDir)
	if err != nil {
		log.Fatalf("Failed to list input directory: %v", err)
	}
	if len(papers) == 0 {
		log.Fatalf("No PDF files found in %s", cfg.InputDir)
	}

	// Cancel outstanding work on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		log.Printf("Received signal: %s", sig)
		cancel()
	}()

	if failed := processAll(ctx, cfg, p, papers); failed > 0 {
		log.Printf("%d of %d documents failed", failed, len(papers))
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("PDF Processor\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
