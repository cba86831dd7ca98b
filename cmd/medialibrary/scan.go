package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/service"
)

var scanCmd = &cobra.Command{
	Use:   "scan [folder...]",
	Short: "Discover the given folders (or the configured entry points) and exit",
	RunE:  runScan,
}

type progressPrinter struct{}

func (progressPrinter) OnDiscoveryStarted(entryPoint string) {
	fmt.Fprintf(os.Stderr, "Scanning %s\n", entryPoint)
}

func (progressPrinter) OnDiscoveryProgress(string, string) {}

func (progressPrinter) OnDiscoveryCompleted(entryPoint string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed %s: %v\n", entryPoint, err)
		return
	}
	fmt.Fprintf(os.Stderr, "Done %s\n", entryPoint)
}

func (progressPrinter) OnParsingStatsUpdated(entryPoint string, percent int) {
	fmt.Fprintf(os.Stderr, "  %s %d%%\n", entryPoint, percent)
}

func (progressPrinter) OnIndexingFailed(_, path string, err error) {
	fmt.Fprintf(os.Stderr, "  failed to index %s: %v\n", path, err)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	library := service.New(cfg, log)
	if err := library.Initialize(ctx, cfg.Library.StorageRoot); err != nil {
		return err
	}
	defer library.Close()

	bus, err := library.Bus()
	if err != nil {
		return err
	}
	bus.SubscribeDiscovery(progressPrinter{})
	bus.SubscribeParsing(progressPrinter{})
	bus.SubscribeIndexingFailures(progressPrinter{})

	for _, folder := range args {
		if err := library.DiscoverEntryPoint(ctx, folder); err != nil {
			return fmt.Errorf("discover %s: %w", folder, err)
		}
	}
	if err := library.WaitIdle(ctx); err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return err
	}

	return printCounts(ctx, library)
}

func printCounts(ctx context.Context, library *service.MediaLibrary) error {
	counts, err := library.MediaCounts(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("audio: %d\nvideo: %d\n", counts[domain.MediaTypeAudio.String()], counts[domain.MediaTypeVideo.String()])
	return nil
}
