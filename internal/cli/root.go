package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
)

// Version is the release version reported by the version command and the
// MCP server implementation info
const Version = "0.2.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mcp-github-owners",
	Short: "MCP server exposing CODEOWNERS-derived file ownership for GitHub repositories",
	Long: `mcp-github-owners resolves file ownership for GitHub repositories from
their CODEOWNERS files and exposes the results as Model Context Protocol
tools.

Ownership follows CODEOWNERS semantics: the last matching rule wins, a
matching rule with no owners explicitly unassigns, and team owners are
expanded into their individual members through the GitHub API.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("mcp-github-owners v" + Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.mcp-github-owners/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.mcp-github-owners")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match MCP_GITHUB_OWNERS_*
	viper.SetEnvPrefix("MCP_GITHUB_OWNERS")
	viper.AutomaticEnv()

	// Bare env vars honored for compatibility with common deployments
	_ = viper.BindEnv("github.token", "GITHUB_TOKEN")
	_ = viper.BindEnv("server.debug", "DEBUG")
	_ = viper.BindEnv("server.transport", "TRANSPORT")
	_ = viper.BindEnv("server.host", "HOST")
	_ = viper.BindEnv("server.port", "PORT")
	_ = viper.BindEnv("cache.ttl_secs", "CACHE_TTL_SECS")

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// buildConfig layers viper settings (config file and env vars) over the
// built-in defaults
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	if v := viper.GetString("github.token"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := viper.GetString("github.base_url"); v != "" {
		cfg.GitHub.BaseURL = v
	}
	if v := viper.GetString("github.user_agent"); v != "" {
		cfg.GitHub.UserAgent = v
	}
	if v := viper.GetDuration("github.timeout"); v > 0 {
		cfg.GitHub.Timeout = v
	}
	if v := viper.GetFloat64("github.requests_per_second"); v > 0 {
		cfg.GitHub.RequestsPerSecond = v
	}
	if v := viper.GetInt("github.burst"); v > 0 {
		cfg.GitHub.Burst = v
	}
	if v := viper.GetString("github.http_proxy"); v != "" {
		cfg.GitHub.HTTPProxy = v
	}
	if v := viper.GetString("github.https_proxy"); v != "" {
		cfg.GitHub.HTTPSProxy = v
	}

	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if viper.IsSet("cache.ttl_secs") {
		cfg.Cache.TTL = time.Duration(viper.GetInt("cache.ttl_secs")) * time.Second
	} else if v := viper.GetDuration("cache.ttl"); v > 0 {
		cfg.Cache.TTL = v
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}

	if v := viper.GetString("server.transport"); v != "" {
		cfg.Server.Transport = v
	}
	if v := viper.GetString("server.host"); v != "" {
		cfg.Server.Host = v
	}
	if v := viper.GetInt("server.port"); v > 0 {
		cfg.Server.Port = v
	}
	if viper.IsSet("server.debug") {
		cfg.Server.Debug = viper.GetBool("server.debug")
	}

	if v := viper.GetInt("resolve.max_depth"); v > 0 {
		cfg.Resolve.MaxDepth = v
	}
	if v := viper.GetInt("resolve.workers"); v > 0 {
		cfg.Resolve.Workers = v
	}

	return cfg
}

// setupLogging configures the process-wide slog default. Debug mode and
// --verbose both lower the level; non-stdio transports may log to stdout
// but stdio must keep it clean for the protocol stream.
func setupLogging(cfg *model.Config) {
	level := slog.LevelInfo
	if cfg.Server.Debug || verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
