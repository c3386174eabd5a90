// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the citeassist CLI. It appends
// citation sheets to PDFs, relays typesetting sources to the render
// service, and serves both over HTTP.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citeassist/internal/secrets"
	"github.com/pdiddy/citeassist/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the resolved configuration, filled in before any command runs.
	cfg types.Config

	// logger writes structured logs to stderr at the configured level.
	logger *slog.Logger
)

// rootCmd is the base command for the citeassist CLI.
var rootCmd = &cobra.Command{
	Use:   "citeassist",
	Short: "Append citation sheets to research papers",
	Long: `citeassist formats a paper's bibliographic record as a BibTeX entry,
typesets a one-page citation sheet through the LaTeX render service (or a
local fallback when the service is unavailable), and appends it to the
paper's PDF with a clickable button on the first page.

Use annotate for single documents, serve to run the HTTP relay, and history
to inspect previously produced sheets.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		logger = newLogger(c.LogLevel)

		s, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", slog.Any("keys", keys))
		}
		secrets.Apply(&c, s)
		cfg = c
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./citeassist.yaml or ~/.config/citeassist/citeassist.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("renderer", "", "render service URL")
	pf.String("backend", "", "render backend: http or container")
	pf.String("ledger", "", "sheet history database")

	mustBind("log_level", "log-level")
	mustBind("render.base_url", "renderer")
	mustBind("render.backend", "backend")
	mustBind("ledger.path", "ledger")
}

func initConfig() {
	// .env values become environment variables; existing ones win.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("citeassist")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "citeassist"))
		}
	}

	viper.SetEnvPrefix("CITEASSIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(types.DefaultConfig())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that environment
// variables are seen by Unmarshal.
func setDefaults(d types.Config) {
	viper.SetDefault("log_level", d.LogLevel)

	viper.SetDefault("render.timeout", d.Render.Timeout)
	viper.SetDefault("render.user_agent", d.Render.UserAgent)
	viper.SetDefault("render.backend", string(d.Render.Backend))
	viper.SetDefault("render.base_url", d.Render.BaseURL)
	viper.SetDefault("render.poll_interval", d.Render.PollInterval)
	viper.SetDefault("render.max_attempts", d.Render.MaxAttempts)
	viper.SetDefault("render.poll_timeout", d.Render.PollTimeout)
	viper.SetDefault("render.poll_request_timeout", d.Render.PollRequestTimeout)
	viper.SetDefault("render.backoff", d.Render.Backoff)
	viper.SetDefault("render.max_backoff", d.Render.MaxBackoff)
	viper.SetDefault("render.rate_limit", d.Render.RateLimit)
	viper.SetDefault("render.token", d.Render.Token)
	viper.SetDefault("render.container_image", d.Render.ContainerImage)

	viper.SetDefault("compose.button_image", d.Compose.ButtonImage)
	viper.SetDefault("compose.sheet_base_url", d.Compose.SheetBaseURL)

	viper.SetDefault("server.addr", d.Server.Addr)
	viper.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	viper.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	viper.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	viper.SetDefault("ledger.path", d.Ledger.Path)
}

// loadConfig decodes the merged defaults, config file, environment and
// flags.
func loadConfig() (types.Config, error) {
	c := types.DefaultConfig()
	if err := viper.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return c, nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// mustBind binds a persistent flag to a configuration key.
func mustBind(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// mustBindLocal binds a command's own flag to a configuration key.
func mustBindLocal(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
