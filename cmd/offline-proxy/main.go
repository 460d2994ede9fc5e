package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/offline-cache/pkg/logging"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// GlobalOptions holds options shared by all commands.
type GlobalOptions struct {
	RedisURL       string
	RedisPrefix    string
	ConnectRetries uint64
	ConfigFile     string
	Origin         string
	LogLevel       string
	LogPretty      bool
}

var globalOptions GlobalOptions

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "offline-proxy",
	Short: "Offline-first caching proxy",
	Long: `
offline-proxy precaches an application shell, serves it from cache and keeps
third-party assets after their first fetch, so the application keeps working
when the network is gone.

Stores live in Redis when --redis-url is set, in memory otherwise.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
	Version:           version,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(globalOptions.LogLevel)
		if err != nil {
			return err
		}
		logging.Setup(logging.Config{
			Level:  level,
			Pretty: globalOptions.LogPretty,
			Output: os.Stderr,
		})
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

func init() {
	f := cmdRoot.PersistentFlags()
	f.StringVar(&globalOptions.RedisURL, "redis-url", getEnv("REDIS_URL", ""), "Redis address or redis:// URL (env REDIS_URL); empty keeps stores in memory")
	f.StringVar(&globalOptions.RedisPrefix, "redis-prefix", getEnv("REDIS_PREFIX", "offline"), "Redis key prefix (env REDIS_PREFIX)")
	f.Uint64Var(&globalOptions.ConnectRetries, "connect-retries", 5, "Redis connection attempts after the first")
	f.StringVar(&globalOptions.ConfigFile, "config", getEnv("MANIFEST_FILE", ""), "YAML worker configuration (env MANIFEST_FILE)")
	f.StringVar(&globalOptions.Origin, "origin", getEnv("ORIGIN", ""), "application origin, overrides the configuration (env ORIGIN)")
	f.StringVar(&globalOptions.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "debug, info, warn or error (env LOG_LEVEL)")
	f.BoolVar(&globalOptions.LogPretty, "log-pretty", getEnvBool("LOG_PRETTY", false), "human-readable log output (env LOG_PRETTY)")
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return d
}
