package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shelfwatch/internal/cli"
	"shelfwatch/internal/config"
	"shelfwatch/internal/model"
)

func productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List and review canonical products",
	}

	cmd.AddCommand(productsListCmd())
	cmd.AddCommand(productsAcceptCmd())
	cmd.AddCommand(productsRejectCmd())
	cmd.AddCommand(productsImportCmd())
	cmd.AddCommand(productsConfirmDuplicateCmd())
	cmd.AddCommand(productsNotDuplicateCmd())

	return cmd
}

func productsListCmd() *cobra.Command {
	var (
		retailer string
		stage    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List canonical products by lifecycle stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			lifecycleStage := model.LifecycleStage(strings.ToUpper(stage))
			if !model.ValidStage(lifecycleStage) {
				return fmt.Errorf("unknown lifecycle stage %q", stage)
			}

			store, _, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			products, err := store.ListProductsByStage(ctx, retailer, lifecycleStage)
			if err != nil {
				return err
			}

			if len(products) == 0 {
				fmt.Println(cli.FormatInfo(fmt.Sprintf("No products in stage %s", lifecycleStage)))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Products in %s (%d)", lifecycleStage, len(products))))
			for _, p := range products {
				price := "-"
				if p.Price != nil {
					price = fmt.Sprintf("%.2f", *p.Price)
				}
				fmt.Printf("  %-12s %8s  %-40s %s\n",
					cli.SubtleStyle.Render(p.Retailer), price, truncate(p.Title, 40), p.URL)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&retailer, "retailer", "", "Limit to one retailer")
	cmd.Flags().StringVar(&stage, "stage", string(model.StagePendingReview), "Lifecycle stage to list")

	return cmd
}

func productsAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <url>",
		Short: "Accept a pending product into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionProduct(cmd, args[0], model.StageAccepted, "accepted")
		},
	}
}

func productsRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <url>",
		Short: "Reject a pending product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionProduct(cmd, args[0], model.StageRejected, "rejected")
		},
	}
}

func transitionProduct(cmd *cobra.Command, url string, stage model.LifecycleStage, verb string) error {
	ctx := cmd.Context()

	store, _, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.UpdateLifecycleStage(ctx, url, stage); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Product %s %s", url, verb)))

	return nil
}

func productsImportCmd() *cobra.Command {
	var (
		retailer    string
		title       string
		price       float64
		productCode string
		imageURLs   []string
	)

	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Import a product directly, bypassing review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			url := args[0]

			store, _, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			product := &model.CanonicalProduct{
				URL:            url,
				Retailer:       retailer,
				Title:          title,
				ProductCode:    productCode,
				ImageURLs:      imageURLs,
				LifecycleStage: model.StageImportedDirect,
				LastUpdated:    time.Now(),
			}
			if cmd.Flags().Changed("price") {
				product.Price = &price
			}

			if err := store.SaveProduct(ctx, product); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %s for %s", url, retailer)))

			return nil
		},
	}

	cmd.Flags().StringVar(&retailer, "retailer", "", "Retailer the product belongs to")
	cmd.Flags().StringVar(&title, "title", "", "Product title")
	cmd.Flags().Float64Var(&price, "price", 0, "Product price")
	cmd.Flags().StringVar(&productCode, "code", "", "Retailer product code")
	cmd.Flags().StringSliceVar(&imageURLs, "image", nil, "Product image URL (repeatable)")
	_ = cmd.MarkFlagRequired("retailer")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func productsConfirmDuplicateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm-duplicate <url> <existing-url>",
		Short: "Confirm a suspected duplicate matches an existing product",
		Long: "Records the human confirmation in the audit log. The incoming record " +
			"resolves against the existing catalog entry; no product is created.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			url, existingURL := args[0], args[1]

			store, _, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			existing, err := store.FindByURL(ctx, existingURL)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("no catalog product at %s", existingURL)
			}

			entry := &model.AuditEntry{
				ScanID:     "manual-review",
				Retailer:   existing.Retailer,
				URL:        url,
				MatchedURL: existingURL,
				Method:     model.MethodNone,
				Confidence: 1.0,
				CreatedAt:  time.Now(),
			}
			if err := store.AppendAudit(ctx, entry); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Confirmed %s duplicates %s", url, existingURL)))

			return nil
		},
	}
}

func productsNotDuplicateCmd() *cobra.Command {
	var (
		retailer string
		title    string
		price    float64
	)

	cmd := &cobra.Command{
		Use:   "not-duplicate <url>",
		Short: "Mark a suspected duplicate as a genuinely new product",
		Long: "Re-enqueues the record for primary review so the extraction path " +
			"creates it like any other confirmed-new product.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			opts, err := config.Load()
			if err != nil {
				return err
			}

			q, cleanup, err := buildQueue(ctx, opts, false)
			if err != nil {
				return err
			}
			defer cleanup()

			record := model.CatalogRecord{
				URL:      args[0],
				Retailer: retailer,
				Title:    title,
			}
			if cmd.Flags().Changed("price") {
				record.Price = &price
			}

			task := &model.ReviewTask{
				ScanID:     "manual-review",
				Retailer:   retailer,
				ReviewType: model.ReviewPrimary,
				Record:     record,
			}
			if err := q.Enqueue(ctx, task); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Re-enqueued %s for primary review", args[0])))

			return nil
		},
	}

	cmd.Flags().StringVar(&retailer, "retailer", "", "Retailer the record belongs to")
	cmd.Flags().StringVar(&title, "title", "", "Record title, if known")
	cmd.Flags().Float64Var(&price, "price", 0, "Record price, if known")
	_ = cmd.MarkFlagRequired("retailer")

	return cmd
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
