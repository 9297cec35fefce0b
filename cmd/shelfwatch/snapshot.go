package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shelfwatch/internal/cli"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect baseline snapshots",
	}

	cmd.AddCommand(snapshotShowCmd())
	cmd.AddCommand(snapshotPromoteCmd())

	return cmd
}

func snapshotShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <retailer>",
		Short: "Show the current baseline snapshot for a retailer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			retailer := args[0]

			store, _, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, capturedAt, err := store.GetSnapshot(ctx, retailer)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println(cli.FormatInfo(fmt.Sprintf("No baseline snapshot for %s yet", retailer)))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Baseline for %s (%d records, captured %s)",
				retailer, len(records), capturedAt.Format("2006-01-02 15:04:05"))))

			for _, rec := range records {
				price := "-"
				if rec.Price != nil {
					price = fmt.Sprintf("%.2f", *rec.Price)
				}
				fmt.Printf("  %s  %s  %s\n", cli.SubtleStyle.Render(price), rec.Title, rec.URL)
			}

			return nil
		},
	}

	return cmd
}

func snapshotPromoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote <retailer> <scan-file>",
		Short: "Replace a retailer's baseline with a scan file without resolving it",
		Long: "Loads an NDJSON scan file directly into the baseline snapshot. Useful " +
			"when seeding a retailer whose catalog was reviewed out of band.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			retailer, scanPath := args[0], args[1]

			records, skipped, err := readScanFile(scanPath, retailer)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("scan file %s contains no usable records", scanPath)
			}

			store, _, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ReplaceSnapshot(ctx, retailer, records); err != nil {
				return err
			}

			if skipped > 0 {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("Skipped %d malformed lines", skipped)))
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Baseline for %s replaced with %d records", retailer, len(records))))

			return nil
		},
	}

	return cmd
}
