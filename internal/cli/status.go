package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/dexcache/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configured backends and store contents",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	st, err := app.StoreStatus(ctx)
	if err != nil {
		slog.Error("Failed to read store status", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STORE\tRECORDS\tSCHEMA\tCACHE\tCATALOG")
	_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
		st.Backend, st.Records, st.SchemaVersion, cfg.Cache.Backend, cfg.Catalog.BaseURL)
	_ = w.Flush()
}
