package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/bootstrap"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/config"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/pipeline"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/query"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/source"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the JSON result, so logs go to stderr.
	log := logger.NewTo(os.Stderr, cfg.Log.Level, cfg.Log.JSON())
	ctx := logger.WithContext(context.Background(), log)

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "sync", "count", "query":
		err = withApp(ctx, cfg, func(app *bootstrap.App) error {
			switch cmd {
			case "sync":
				return runSync(ctx, app, args, os.Stdout)
			case "count":
				return runCount(ctx, app, args, os.Stdout)
			default:
				return runQuery(ctx, app, args, os.Stdout)
			}
		})
	case "upload":
		err = runUpload(ctx, log, args, os.Stdout)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("Command failed")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Category sync CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  sync      Load, normalize and upsert the category dataset")
	fmt.Println("  count     Compare source and destination row counts")
	fmt.Println("  query     Read categories by main category, sub1 or id")
	fmt.Println("  upload    Stage a local dataset file in GCS")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func withApp(ctx context.Context, cfg *config.Config, fn func(*bootstrap.App) error) error {
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

// errPartial makes the process exit non-zero after printing a report with
// record errors.
var errPartial = errors.New("sync finished with record errors")

func runSync(ctx context.Context, app *bootstrap.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	src := fs.String("source", "", "Dataset path or gs:// / s3:// URI (defaults to CATEGORY_SOURCE)")
	dryRun := fs.Bool("dry-run", false, "Validate without writing")
	deactivate := fs.Bool("deactivate-stale", false, "Deactivate rows missing from the source")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := app.Syncer.Sync(ctx, pipeline.SyncOptions{
		Source:          *src,
		DryRun:          *dryRun,
		DeactivateStale: *deactivate,
	})
	if err != nil {
		resp := map[string]interface{}{"success": false, "error": err.Error()}
		if report != nil {
			resp["stats"] = report
		}
		_ = writeJSON(out, resp)
		return err
	}

	if err := writeJSON(out, map[string]interface{}{"success": true, "stats": report}); err != nil {
		return err
	}
	if report.Errors > 0 {
		return errPartial
	}
	return nil
}

func runCount(ctx context.Context, app *bootstrap.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("count", flag.ContinueOnError)
	src := fs.String("source", "", "Dataset path or URI (defaults to CATEGORY_SOURCE)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	counts, err := app.Syncer.CompareCounts(ctx, *src)
	if err != nil {
		_ = writeJSON(out, map[string]interface{}{"success": false, "error": err.Error()})
		return err
	}
	return writeJSON(out, map[string]interface{}{"success": true, "counts": counts})
}

func runQuery(ctx context.Context, app *bootstrap.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	mainCategory := fs.String("main", "", "Main category")
	sub1 := fs.String("sub1", "", "First sub category (requires -main)")
	id := fs.Int64("id", 0, "Source id")
	limit := fs.Int("limit", 0, "Row cap when no filter is given")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rows, err := app.Query.Find(ctx, query.Params{Main: *mainCategory, Sub1: *sub1, ID: *id, Limit: *limit})
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]interface{}{"success": true, "data": rows, "count": len(rows)})
}

func runUpload(ctx context.Context, log zerolog.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	bucketName := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name (or set GCS_BUCKET)")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local dataset file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *bucketName == "" || *filePath == "" {
		return errors.New("usage: cli upload -bucket NAME -file PATH")
	}
	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading dataset to GCS")

	uri, err := source.UploadToGCS(ctx, *bucketName, *objectName, *filePath)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Uploaded %s to %s\n", *filePath, uri)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
