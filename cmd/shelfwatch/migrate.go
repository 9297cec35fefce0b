package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shelfwatch/internal/cli"
	"shelfwatch/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply any pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, _, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Database schema at version %d", storage.ExpectedSchemaVersion)))

			return nil
		},
	}
}
