package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yourorg/musigent/internal/config"
	"github.com/yourorg/musigent/internal/ledger"
)

const defaultConfigContent = `generation:
  provider: "mock"        # mock | http
  base_url: ""
  api_key: ""
  model: "chirp-v3-5"
  timeout: 60s
  max_retries: 3

recognition:
  base_url: "https://api.audd.io/"
  api_token: ""           # empty disables fingerprint lookups
  timeout: 30s
  baseline_score: 70

quality:
  min_originality: 0.35
  chunk_size: 2048
  fetch_timeout: 30s

throttle:
  jingle_per_minute: 5
  jingle_per_day: 5
  window: 1m

taste:
  ttl: 10m

timeinfo:
  detect_timezone: false
  lookup_url: "https://ipapi.co/json/"
  timeout: 5s

server:
  host: "127.0.0.1"
  port: 8000
  rate_limit: "60-M"
  cors_origins:
    - "*"

log:
  level: "info"
  file: ""
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	var envFile string
	var debug bool

	root := &cobra.Command{
		Use:           "musigent",
		Short:         "Musigent music generation agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				return godotenv.Load(envFile)
			}
			_ = godotenv.Load()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with MUSIGENT_* overrides")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	opts := &rootOptions{cfgPath: &cfgPath, debug: &debug}
	root.AddCommand(newInitCmd())
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newGenerateCmd(opts))
	root.AddCommand(newJingleCmd(opts))
	root.AddCommand(newLedgerCmd(opts))
	root.AddCommand(newAnalyzeCmd(opts))

	return root
}

type rootOptions struct {
	cfgPath *string
	debug   *bool
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(*o.cfgPath)
	if err != nil {
		return nil, err
	}
	if *o.debug {
		cfg.Log.Level = "debug"
		cfg.Server.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize ~/.musigent directory, default config and ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := config.DefaultPath()
			if err != nil {
				return err
			}
			baseDir := filepath.Dir(cfgFile)
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return err
			}

			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			l, err := ledger.Open(cfg.Ledger.Path, nil, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ledger ready", l.Path())
			fmt.Fprintln(cmd.OutOrStdout(), "set recognition.api_token and generation.api_key in", cfgFile)
			return nil
		},
	}
}
