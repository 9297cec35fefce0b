package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shelfwatch/internal/cli"
	"shelfwatch/internal/model"
)

func profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect and manage learned retailer match profiles",
	}

	cmd.AddCommand(profilesListCmd())
	cmd.AddCommand(profilesShowCmd())
	cmd.AddCommand(profilesResetCmd())

	return cmd
}

func profilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all retailers with learned profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, _, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			profiles, err := store.ListProfiles(ctx)
			if err != nil {
				return err
			}

			if len(profiles) == 0 {
				fmt.Println(cli.FormatInfo("No learned profiles yet"))
				return nil
			}

			fmt.Println(cli.FormatTitle("Retailer Match Profiles"))
			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-24s %-20s %8s %12s %8s",
				"RETAILER", "PREFERRED", "SAMPLES", "URL STABLE", "IMG CON")))
			for _, p := range profiles {
				fmt.Printf("%-24s %-20s %8d %12.2f %8.2f\n",
					p.Retailer, p.PreferredMethod, p.SampleSize,
					p.URLStabilityScore, p.ImageConsistencyScore)
			}

			return nil
		},
	}
}

func profilesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <retailer>",
		Short: "Show a retailer's full match profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			retailer := args[0]

			store, _, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			profile, err := store.GetProfile(ctx, retailer)
			if err != nil {
				return err
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "Preferred method:     %s\n", profile.PreferredMethod)
			fmt.Fprintf(&sb, "Sample size:          %d\n", profile.SampleSize)
			fmt.Fprintf(&sb, "URL stability:        %.3f\n", profile.URLStabilityScore)
			fmt.Fprintf(&sb, "Image samples:        %d\n", profile.ImageSampleSize)
			fmt.Fprintf(&sb, "Image consistency:    %.3f\n", profile.ImageConsistencyScore)
			fmt.Fprintf(&sb, "Confidence threshold: %.2f\n", profile.ConfidenceThreshold)
			if profile.SkipURLStrategies() {
				fmt.Fprintf(&sb, "\n%s\n", cli.FormatWarning("URL strategies disabled for this retailer"))
			}
			if len(profile.MethodCounts) > 0 {
				fmt.Fprintf(&sb, "\nMethod counts:\n")
				for _, method := range []model.MatchMethod{
					model.MethodExactURL, model.MethodNormalizedURL, model.MethodProductCode,
					model.MethodExactTitlePrice, model.MethodFuzzyTitlePrice, model.MethodImageOverlap,
				} {
					if n := profile.MethodCounts[method]; n > 0 {
						fmt.Fprintf(&sb, "  %-20s %d\n", method, n)
					}
				}
			}

			fmt.Println(cli.RenderBox(fmt.Sprintf("%s Profile: %s", cli.ShelfIcon, retailer),
				strings.TrimRight(sb.String(), "\n")))

			return nil
		},
	}
}

func profilesResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <retailer>",
		Short: "Discard a retailer's learned profile and revert to defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			retailer := args[0]

			store, _, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ResetProfile(ctx, retailer); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Profile for %s reset to defaults", retailer)))

			return nil
		},
	}
}
