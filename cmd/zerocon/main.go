package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/zerocon/pkg/config"
	"github.com/cuemby/zerocon/pkg/console"
	"github.com/cuemby/zerocon/pkg/log"
	"github.com/cuemby/zerocon/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, console.ErrSessionExpired) {
			fmt.Fprintln(os.Stderr, "Error: session expired, update session_cookie or ZEROCON_SESSION")
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zerocon",
	Short: "zerocon - command line console for a zero trust access proxy",
	Long: `zerocon mirrors the admin console of a zero trust access proxy.

It keeps a local copy of nodes, services, certificates, authorities,
policies, checks, alerts, secrets and logs in step with the server over
its event channel, and can list, apply and delete them from the shell.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"zerocon version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default "+config.DefaultPath+")")
	flags.String("server", "", "Console URL, overrides the config file")
	flags.String("session", "", "Session cookie value, overrides the config file")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.Bool("log-json", false, "Log in JSON")
	flags.Bool("insecure", false, "Skip TLS certificate verification")
	flags.StringP("output", "o", outputTable, "Output format (table, yaml, json)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(settingsCmd)
	for _, cmd := range append(resourceCmds(), ownedCmds()...) {
		rootCmd.AddCommand(cmd)
	}
}

// loadConfig reads the config file and applies the global flags on top
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if v, _ := cmd.Flags().GetString("server"); v != "" {
		cfg.Server = v
	}
	if v, _ := cmd.Flags().GetString("session"); v != "" {
		cfg.SessionCookie = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if cmd.Flags().Changed("log-json") {
		cfg.LogJSON, _ = cmd.Flags().GetBool("log-json")
	}
	if cmd.Flags().Changed("insecure") {
		cfg.InsecureSkipVerify, _ = cmd.Flags().GetBool("insecure")
	}
	return cfg, nil
}

func initLogging(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	metrics.SetVersion(Version)
	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
	return nil
}

// withConsole builds a console, starts it and runs fn until fn returns or
// the process is interrupted.
func withConsole(cmd *cobra.Command, fn func(ctx context.Context, c *console.Console) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c, err := console.New(cfg)
	if err != nil {
		return err
	}

	return withSignals(cmd.Context(), func(ctx context.Context) error {
		return c.Exec(ctx, func(ctx context.Context) error {
			return fn(ctx, c)
		})
	})
}

// withSignals runs fn with a context cancelled on SIGINT or SIGTERM
func withSignals(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx)
}
