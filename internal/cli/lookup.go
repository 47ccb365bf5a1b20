package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/vietddude/dexcache/internal/control"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [key]",
	Short: "Resolve a single species through all tiers and print it",
	Args:  cobra.ExactArgs(1),
	Run:   runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize dexcache", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = app.Stop(ctx)
	}()

	view, found, err := app.Resolver().Resolve(ctx, args[0])
	if err != nil {
		slog.Error("Lookup rejected", "error", err)
		os.Exit(2)
	}
	if !found {
		fmt.Fprintf(os.Stderr, "%s: not found\n", args[0])
		os.Exit(1)
	}

	data, err := json.Marshal(view)
	if err != nil {
		slog.Error("Failed to encode view", "error", err)
		os.Exit(1)
	}
	_, _ = os.Stdout.Write(pretty.Pretty(data))
}
