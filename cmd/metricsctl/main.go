package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "metricsctl",
		Short:         "Query the comparative metrics API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serverURL string
	timeout   time.Duration
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("METRICS_SERVER", "http://localhost:8080"), "metrics API base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.AddCommand(newGetCmd(), newDriversCmd(), newInvalidateCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
