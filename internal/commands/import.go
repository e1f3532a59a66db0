package commands

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/klabast/wb-services/admission-board/internal/app"
	"github.com/klabast/wb-services/admission-board/internal/storage"
)

// Import handles the import subcommand: copy every event from one medium
// to another, e.g. a legacy CSV table into SQLite
func Import(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	from := fs.String("from", "", "Source table (.csv) or database (.db, .sqlite)")
	to := fs.String("to", "", "Target table (.csv) or database (.db, .sqlite)")
	overwrite := fs.Bool("overwrite", false, "Replace events already in the target")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: admission-board import -from <path> -to <path> [OPTIONS]\n\n")
		fmt.Fprintf(os.Stderr, "Copies all events between storage media. The driver is picked by file extension.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if *from == "" || *to == "" {
		fs.Usage()
		os.Exit(2)
	}

	logger, err := app.NewLogger(app.LogConfig{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := runImport(context.Background(), *from, *to, *overwrite, logger); err != nil {
		logger.Error("import failed", zap.Error(err))
		os.Exit(1)
	}
}

func runImport(ctx context.Context, from, to string, overwrite bool, logger *zap.Logger) error {
	if from == to {
		return fmt.Errorf("source and target are the same file")
	}

	src, srcCloser, err := storage.Open(storage.DriverForPath(from), from, false, logger)
	if err != nil {
		return err
	}
	defer srcCloser.Close()

	dst, dstCloser, err := storage.Open(storage.DriverForPath(to), to, true, logger)
	if err != nil {
		return err
	}
	defer dstCloser.Close()

	snap, err := storage.Transfer(ctx, src, dst, overwrite)
	if err != nil {
		return err
	}

	logger.Info("import complete",
		zap.String("from", src.Describe()),
		zap.String("to", dst.Describe()),
		zap.Int("events", len(snap.Events)),
		zap.Int("dropped", snap.Report.Dropped),
		zap.Int("last_id", snap.LastID),
	)
	return nil
}
