package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/paramsync/cmd/paramsync-gcs/app/options"
	"github.com/autopeer-io/paramsync/internal/gcs"
	"github.com/autopeer-io/paramsync/internal/paramsync/cache"
)

func newCacheCommand(opts *options.ServerOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and remove stored parameter caches",
	}
	cmd.AddCommand(newCacheListCommand(opts), newCacheDeleteCommand(opts))
	return cmd
}

func newCacheListCommand(opts *options.ServerOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached vehicles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			store, err := gcs.InitializeStore(ctx, opts.CacheOptions, opts.S3Options)
			if err != nil {
				return err
			}

			entries, listErr := store.List(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), formatEntries(entries))
			return listErr
		},
	}
}

func newCacheDeleteCommand(opts *options.ServerOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete the cache of one vehicle, forcing a full fetch on its next connect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := cache.ParseVehicleKey(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			store, err := gcs.InitializeStore(ctx, opts.CacheOptions, opts.S3Options)
			if err != nil {
				return err
			}
			if err := store.Delete(ctx, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
			return nil
		},
	}
}

func formatEntries(entries []cache.Entry) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("VEHICLE", "AUTOPILOT", "HASH", "PARAMS", "UPDATED")
	for _, e := range entries {
		table.AddRow(
			e.Key.String(),
			e.Key.Autopilot.String(),
			"0x"+strconv.FormatUint(e.Hash, 16),
			len(e.Params),
			e.UpdatedAt.Format(time.RFC3339),
		)
	}
	return table
}
