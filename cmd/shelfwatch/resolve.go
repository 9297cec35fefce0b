package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shelfwatch/internal/cli"
	"shelfwatch/internal/common"
	"shelfwatch/internal/model"
	"shelfwatch/internal/queue"
)

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a catalog scan against known products",
		Long: `Read a scan file of newline-delimited JSON catalog records, resolve every
record through the match cascade, route the outcomes, and commit the
retailer's updated match profile.

Each line of the scan file is one record:
  {"url": "...", "title": "...", "price": 89.00, "image_urls": ["..."]}`,
		RunE: runResolve,
	}

	cmd.Flags().StringP("retailer", "r", "", "Retailer the scan belongs to (required)")
	cmd.Flags().StringP("scan", "s", "", "Path to the scan file (required)")
	cmd.Flags().String("scan-id", "", "Scan identifier (defaults to a new UUID)")
	cmd.Flags().Bool("dry-run", false, "Resolve without enqueueing review tasks")
	_ = cmd.MarkFlagRequired("retailer")
	_ = cmd.MarkFlagRequired("scan")

	_ = viper.BindPFlag("resolve.retailer", cmd.Flags().Lookup("retailer"))
	_ = viper.BindPFlag("resolve.scan", cmd.Flags().Lookup("scan"))
	_ = viper.BindPFlag("resolve.scan_id", cmd.Flags().Lookup("scan-id"))
	_ = viper.BindPFlag("resolve.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runResolve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	retailer := viper.GetString("resolve.retailer")
	scanPath := viper.GetString("resolve.scan")
	scanID := viper.GetString("resolve.scan_id")
	dryRun := viper.GetBool("resolve.dry_run")

	if scanID == "" {
		scanID = uuid.NewString()
	}

	records, skipped, err := readScanFile(scanPath, retailer)
	if err != nil {
		return err
	}
	if skipped > 0 {
		slog.Warn("Skipped malformed scan lines", "count", skipped)
	}

	store, opts, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	q, cleanup, err := buildQueue(ctx, opts, dryRun)
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := buildEngine(store, q, opts, dryRun)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Resolving %d records for %s", len(records), retailer)))

	bar := cli.NewBatchProgress(os.Stderr, len(records))
	outcome, err := eng.ResolveScan(ctx, retailer, scanID, records, func(done int) {
		_ = bar.Set(done)
	})
	if err != nil {
		common.LogError(err, "Scan batch failed", common.Fields{
			"retailer": retailer,
			"scan_id":  scanID,
		})
		return err
	}

	summary := fmt.Sprintf(`Scan: %s
Records: %d

  • Existing (skipped): %d
  • Confirmed new: %d
  • Suspected duplicates: %d
  • Invalid records: %d

Profile after batch:
  • Sample size: %d
  • URL stability: %.3f
  • Image consistency: %.3f
  • Preferred method: %s
  • Duration: %s`,
		scanID, outcome.Stats.Total,
		outcome.Stats.Existing, outcome.Stats.ConfirmedNew,
		outcome.Stats.SuspectedDuplicates, outcome.Stats.Invalid,
		outcome.Profile.SampleSize, outcome.Profile.URLStabilityScore,
		outcome.Profile.ImageConsistencyScore, outcome.Profile.PreferredMethod,
		outcome.Stats.Duration.Round(time.Millisecond))

	title := "Batch Committed"
	if dryRun {
		title = "Dry Run (nothing committed)"
	}
	fmt.Println(cli.RenderBox(title, summary))

	if dryRun {
		if mem, ok := q.(*queue.MemoryQueue); ok {
			fmt.Println(cli.FormatInfo(fmt.Sprintf("Dry run: %d review tasks generated but not delivered", len(mem.Tasks()))))
		}
	}

	return nil
}

// readScanFile parses newline-delimited JSON catalog records. Malformed
// lines are counted and skipped; the batch handles missing fields itself.
func readScanFile(path, retailer string) ([]model.CatalogRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open scan file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var (
		records []model.CatalogRecord
		skipped int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec model.CatalogRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}

		if rec.Retailer == "" {
			rec.Retailer = retailer
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read scan file: %w", err)
	}

	return records, skipped, nil
}
