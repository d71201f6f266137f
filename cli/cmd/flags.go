// Package cmd provides CLI commands for the radar binary.
package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/radar/cli/config"
	"github.com/pithecene-io/radar/types"
)

// Exit codes.
const (
	exitSuccess     = 0
	exitConfigError = 1
	exitStreamEnded = 2
	exitUnreachable = 3
)

// Shared flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// ConfigFlag points at a radar.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to radar.yaml",
		EnvVars: []string{"RADAR_CONFIG"},
	}

	// EndpointFlag overrides the daemon endpoint.
	EndpointFlag = &cli.StringFlag{
		Name:    "endpoint",
		Aliases: []string{"e"},
		Usage:   "Daemon endpoint (named pipe or unix socket path)",
		EnvVars: []string{"RADAR_ENDPOINT"},
	}

	// LogLevelFlag sets the log level.
	LogLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level: debug, info, warn, error",
		EnvVars: []string{"RADAR_LOG_LEVEL"},
	}
)

// OutputFlags returns the flags shared by every command that prints results.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// ConnectionFlags returns the flags shared by commands that dial the daemon.
func ConnectionFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		EndpointFlag,
		LogLevelFlag,
	}
}

// loadConfig reads --config when set. A missing flag yields an empty config.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// resolveEndpoint applies flag > config > platform default.
func resolveEndpoint(c *cli.Context, cfg *config.Config) types.Endpoint {
	if c.IsSet("endpoint") {
		return types.Endpoint(c.String("endpoint"))
	}
	if cfg.Endpoint != "" {
		return types.Endpoint(cfg.Endpoint)
	}
	return types.DefaultEndpoint()
}

// resolveLogLevel applies flag > config.
func resolveLogLevel(c *cli.Context, cfg *config.Config) string {
	if c.IsSet("log-level") {
		return c.String("log-level")
	}
	return cfg.Log.Level
}

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
