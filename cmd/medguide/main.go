// Command medguide searches authoritative medical-guideline sites and returns
// the guideline text, from the command line or as an MCP tool server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FranksOps/medguide/internal/config"
)

var (
	v          = config.New()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "medguide",
	Short:         "Medical guideline search",
	Long:          "medguide searches NICE, RACGP, WHO and CDC guideline sites and extracts the guideline text for people and AI agents.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (yaml, toml or json)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("audit-backend", "none", "fetch audit backend: none, sqlite, postgres, jsonl")
	flags.String("audit-dsn", "", "fetch audit DSN or file path")
	flags.Duration("min-delay", 0, "minimum delay between requests (default from config, 1.5s)")
	flags.String("fingerprint", "", "TLS fingerprint profile: chrome, firefox, safari, go, random")

	for key, flag := range map[string]string{
		"log.level":         "log-level",
		"log.format":        "log-format",
		"audit.backend":     "audit-backend",
		"audit.dsn":         "audit-dsn",
		"fetch.min_delay":   "min-delay",
		"fetch.fingerprint": "fingerprint",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

// loadConfig resolves the configuration for the running command.
func loadConfig() (*config.Config, error) {
	return config.Load(v, configPath)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
