// Package cli implements the optimizer command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"YieldOptimizer/internal/config"
	"YieldOptimizer/internal/logger"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "optimizer",
		Short: "Custodial yield optimizer",
		Long: `optimizer keeps each owner's funds in the venue paying the higher yield.

It serves the HTTP API, runs the periodic reallocation sweep and offers
operator commands that work directly against the configured database.`,
		SilenceUsage: true,
	}

	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", defaultPath, "path to YAML config")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "override log.level")

	cmd.AddCommand(
		newServeCmd(o),
		newInitCmd(o),
		newOptimizeCmd(o),
		newFeeCmd(o),
		newLedgerCmd(o),
		newBalanceCmd(o, "credit"),
		newBalanceCmd(o, "debit"),
		newEventsCmd(o),
		newTokenCmd(o),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// open loads configuration and wires the application.
func (o *rootOptions) open(ctx context.Context) (*App, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)
	return NewApp(ctx, cfg, log)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
