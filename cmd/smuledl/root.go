package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytget/smuledl"
	"github.com/ytget/smuledl/client"
	"github.com/ytget/smuledl/internal/config"
	"github.com/ytget/smuledl/internal/logger"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig         string
	flagBaseURL        string
	flagUA             string
	flagProxy          string
	flagTimeout        time.Duration
	flagLogLevel       string
	flagLogFormat      string
	flagDebug          bool
	flagJSON           bool
	flagProbe          bool
	flagStreamFallback bool
	flagEnsemble       bool
)

// cfg holds the loaded configuration (merged: defaults < config file < env < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "smuledl",
	Short: "Resolve and download Smule recordings",
	Long: `smuledl finds the direct media URL of a Smule recording.
It reads the encrypted media token from the recording page and exchanges it
at the site's redirect endpoint, the same way the site's own player does.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/smuledl/config.toml)")
	pf.StringVar(&flagBaseURL, "base-url", "", "Site base URL")
	pf.StringVar(&flagUA, "ua", "", "Override User-Agent header")
	pf.StringVar(&flagProxy, "proxy", "", "Proxy URL (http/https/socks5)")
	pf.DurationVar(&flagTimeout, "timeout", 0, "HTTP timeout (e.g. 30s, 1m)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: trace | debug | info | warn | error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text | json | color")
	pf.BoolVarP(&flagDebug, "debug", "x", false, "Debug logging for every component")
	pf.BoolVarP(&flagJSON, "json", "j", false, "Print results as JSON")
	pf.BoolVar(&flagProbe, "probe", false, "HEAD the resolved URL for type and size")
	pf.BoolVar(&flagStreamFallback, "stream-fallback", false, "Use the twitter:player:stream link when no media field is found")
	pf.BoolVarP(&flagEnsemble, "ensemble", "e", false, "Treat a bare reference as an ensemble (/c/) recording")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration, then installs the global logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return err
	}

	// CLI flags override config file and environment values
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if flagUA != "" {
		cfg.UserAgent = flagUA
	}
	if flagProxy != "" {
		cfg.Proxy = flagProxy
	}
	if flagTimeout > 0 {
		cfg.Timeout = flagTimeout.String()
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if flagProbe {
		cfg.Probe = true
	}
	if flagStreamFallback {
		cfg.StreamFallback = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lc := cfg.LogConfig()
	lc.Level, lc.Format = cfg.LogLevel, cfg.LogFormat
	if flagDebug {
		lc.Level = "debug"
		lc.ShowCaller = true
	}
	l, err := logger.CreateLoggerFromConfig(lc)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if flagDebug {
		l.EnableAll()
	}
	logger.SetGlobalLogger(l)
	return nil
}

// newSession builds the HTTP session from cfg. Created after loadConfig so
// the client picks up the configured logger.
func newSession() *client.Client {
	return client.NewWith(cfg.ClientConfig())
}

func newResolver(c *client.Client) *smuledl.Resolver {
	return smuledl.New().
		WithClient(c).
		WithProbe(cfg.Probe).
		WithStreamFallback(cfg.StreamFallback)
}

// input turns a bare reference into a URL of the chosen template so
// --ensemble applies.
func input(arg string) string {
	arg = strings.TrimSpace(arg)
	if flagEnsemble && !strings.Contains(arg, "/") {
		return "/c/" + arg
	}
	return arg
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
