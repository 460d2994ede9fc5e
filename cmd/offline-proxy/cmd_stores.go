package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Sternrassler/offline-cache/pkg/cache"
	"github.com/Sternrassler/offline-cache/pkg/fetch"
	"github.com/Sternrassler/offline-cache/pkg/worker"
	"github.com/spf13/cobra"
)

var cmdStores = &cobra.Command{
	Use:   "stores",
	Short: "List cache stores",
	Long: `
The "stores" command lists the cache stores in creation order. Stores that are
not named by the current configuration are marked stale; the next activation
or "purge" deletes them. Current stores that do not exist yet are listed as
missing.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(globalOptions)
		if err != nil {
			return err
		}
		storage, closeStorage, err := openStorage(cmd.Context(), globalOptions)
		if err != nil {
			return err
		}
		defer closeStorage()

		return runStores(cmd.Context(), cmd.OutOrStdout(), storage, cfg)
	},
}

var cmdPurge = &cobra.Command{
	Use:   "purge",
	Short: "Delete stale cache stores",
	Long: `
The "purge" command deletes every store that is not one of the two stores of
the current configuration, without installing or activating anything.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(globalOptions)
		if err != nil {
			return err
		}
		storage, closeStorage, err := openStorage(cmd.Context(), globalOptions)
		if err != nil {
			return err
		}
		defer closeStorage()

		return runPurge(cmd.Context(), cmd.OutOrStdout(), storage, cfg)
	},
}

func init() {
	cmdRoot.AddCommand(cmdStores)
	cmdRoot.AddCommand(cmdPurge)
}

func runStores(ctx context.Context, out io.Writer, storage cache.Storage, cfg worker.Config) error {
	names, err := storage.Keys(ctx)
	if err != nil {
		return err
	}

	for _, name := range names {
		switch name {
		case cfg.ShellCache:
			fmt.Fprintf(out, "%s\tshell\n", name)
		case cfg.DynamicCache:
			fmt.Fprintf(out, "%s\tdynamic\n", name)
		default:
			fmt.Fprintf(out, "%s\tstale\n", name)
		}
	}

	for _, name := range []string{cfg.ShellCache, cfg.DynamicCache} {
		ok, err := storage.Has(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(out, "%s\tmissing\n", name)
		}
	}
	return nil
}

func runPurge(ctx context.Context, out io.Writer, storage cache.Storage, cfg worker.Config) error {
	w, err := worker.New(cfg, storage, fetch.FetcherFunc(offlineFetch))
	if err != nil {
		return err
	}

	deleted, err := w.Purge(ctx)
	if err != nil {
		return err
	}
	for _, name := range deleted {
		fmt.Fprintf(out, "deleted %s\n", name)
	}
	fmt.Fprintf(out, "%d stale store(s) deleted\n", len(deleted))
	return nil
}

// offlineFetch backs workers that must never reach the network.
func offlineFetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return nil, &fetch.FetchError{URL: req.URL.String(), ErrorClass: fetch.ErrorClassNetwork, Err: errors.New("network disabled")}
}
