// Command import runs one watch-history import against the local catalog and
// prints progress to stdout.
//
//	import -file animelist.xml.gz -user 1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/pokerjest/animeshelf/internal/clock"
	"github.com/pokerjest/animeshelf/internal/config"
	"github.com/pokerjest/animeshelf/internal/db"
	"github.com/pokerjest/animeshelf/internal/importer"
	"github.com/pokerjest/animeshelf/internal/logging"
	"github.com/pokerjest/animeshelf/internal/parser"
	"github.com/pokerjest/animeshelf/internal/provider"
	"github.com/pokerjest/animeshelf/internal/store"
)

func main() {
	file := flag.String("file", "", "path to the export (xml or gzip)")
	userID := flag.Uint("user", 0, "user id that owns the watch history")
	configDir := flag.String("config", "", "extra directory to search for config.yaml")
	flag.Parse()

	if *file == "" || *userID == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*file, *userID, *configDir); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, userID uint, configDir string) error {
	if err := config.LoadConfig(configDir); err != nil {
		return err
	}
	cfg := config.AppConfig
	logging.Init(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer func() { _ = logging.Close() }()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := parser.ParseExport(f)
	if err != nil {
		return err
	}
	fmt.Printf("Parsed %d entries from %s\n", len(entries), path)

	if err := db.InitDB(cfg.Database.Path); err != nil {
		return err
	}
	defer func() { _ = db.CloseDB() }()

	providers, err := provider.NewFromConfig(cfg.Providers)
	if err != nil {
		return err
	}

	// Ctrl-C 取消导入，已写入的数据保留
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real{}
	st := store.New(db.DB, clk, cfg.Import.WatchMarkStep)
	im := importer.New(st, providers, nil, clk, importer.OptionsFromConfig(cfg.Import))

	h, err := im.Start(ctx, importer.Request{UserID: userID, Entries: entries})
	if err != nil {
		return err
	}

	for e := range h.Events() {
		printEvent(e)
	}

	result, err := h.Wait(context.Background())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printEvent(e importer.Event) {
	switch e.Phase {
	case importer.PhaseBatch:
		fmt.Printf("== batch %d/%d\n", e.CurrentBatch, e.TotalBatches)
	case importer.PhaseItem:
		fmt.Printf("[%d/%d] %s\n", e.CurrentItemIndex, e.Total, e.CurrentItemLabel)
	case importer.PhasePause:
		if e.RemainingPauseSeconds%10 == 0 {
			fmt.Printf("   cooling down, %ds left\n", e.RemainingPauseSeconds)
		}
	case importer.PhaseComplete:
		state := "done"
		if e.Cancelled {
			state = "cancelled"
		}
		fmt.Printf("== %s: %d imported, %d updated, %d errors\n", state, e.Imported, e.Updated, e.Errors)
	}
}
