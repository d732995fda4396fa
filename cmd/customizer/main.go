// Package main is the entry point for the Ore UI customizer CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oreui/customizer/internal/app"
	"github.com/oreui/customizer/internal/env"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, cli := parseFlags()

	opts.Logger = app.NewLogger(app.LoggerConfig{
		Level:  app.ParseLogLevel(cli.logLevel),
		Format: cli.logFormat,
	})

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Ensure cleanup on all exit paths
	defer func() {
		if err := application.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: shutdown: %v\n", err)
		}
	}()

	if cli.list {
		return listPlugins(application)
	}
	if cli.describe != "" {
		return describePlugin(application, cli.describe)
	}

	// Handle signals for graceful cancellation
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := application.Apply(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	printReport(report)
	return 0
}

// listPlugins prints the discovered plugins without loading them.
func listPlugins(application *app.App) int {
	infos, err := application.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if len(infos) == 0 {
		fmt.Println("No plugins found.")
		return 0
	}

	for _, info := range infos {
		fmt.Printf("%-24s %-10s %-12s %s\n", info.Name, info.Manifest.Version, info.Kind, info.Path)
	}
	return 0
}

// describePlugin prints the full manifest detail for one plugin.
func describePlugin(application *app.App, name string) int {
	m, err := application.Describe(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("%s %s (%s)\n", m.Name, m.Version, m.Kind())
	if m.DisplayName != "" {
		fmt.Printf("  Display name: %s\n", m.DisplayName)
	}
	if m.Description != "" {
		fmt.Printf("  Description:  %s\n", m.Description)
	}
	if m.Author != "" {
		fmt.Printf("  Author:       %s\n", m.Author)
	}
	fmt.Printf("  Entry point:  %s\n", m.Main)
	if m.MinEngineVersion != "" {
		fmt.Printf("  Min engine:   %s\n", m.MinEngineVersion)
	}
	if len(m.Capabilities) > 0 {
		caps := make([]string, len(m.Capabilities))
		for i, c := range m.Capabilities {
			caps[i] = string(c)
		}
		fmt.Printf("  Capabilities: %s\n", strings.Join(caps, ", "))
	}
	if len(m.Dependencies) > 0 {
		fmt.Printf("  Dependencies: %s\n", strings.Join(m.Dependencies, ", "))
	}
	return 0
}

// printReport summarizes the apply pass on stdout, failures on stderr.
func printReport(report *app.Report) {
	fmt.Printf("Applied %d of %d plugin(s) in %s\n",
		report.Active, report.Discovered, report.Duration.Round(time.Millisecond))

	if report.OutputPath != "" {
		fmt.Printf("Wrote %s\n", report.OutputPath)
	}

	for _, err := range report.Errors {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// cliFlags holds flags that configure the CLI itself rather than the app.
type cliFlags struct {
	list      bool
	describe  string
	logLevel  string
	logFormat app.LogFormat
}

func parseFlags() (app.Options, cliFlags) {
	var opts app.Options
	var cli cliFlags
	var pluginPaths string
	var hostType string
	var hostVersion string
	var logFormat string
	var showVersion bool
	var showHelp bool

	flag.StringVar(&pluginPaths, "plugins", "", "Comma-separated plugin directories")
	flag.StringVar(&pluginPaths, "p", "", "Comma-separated plugin directories (shorthand)")
	flag.StringVar(&opts.SettingsPath, "settings", "", "Path to the settings document (JSON)")
	flag.StringVar(&opts.SettingsPath, "s", "", "Path to the settings document (shorthand)")
	flag.StringVar(&opts.OutputPath, "output", "", "Path to write the applied document")
	flag.StringVar(&opts.OutputPath, "o", "", "Path to write the applied document (shorthand)")
	flag.StringVar(&hostType, "host", "CLI", "Host type plugins observe (Website, App, CLI)")
	flag.StringVar(&hostVersion, "host-version", "0.0.0", "Customizer version plugins observe")
	flag.BoolVar(&cli.list, "list", false, "List discovered plugins and exit")
	flag.BoolVar(&cli.list, "l", false, "List discovered plugins and exit (shorthand)")
	flag.StringVar(&cli.describe, "describe", "", "Print a plugin's manifest and exit")
	flag.StringVar(&cli.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Customizer - Ore UI customization pipeline\n\n")
		fmt.Fprintf(os.Stderr, "Usage: customizer [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  customizer -s settings.json -o applied.json   Apply with plugins\n")
		fmt.Fprintf(os.Stderr, "  customizer -p ./plugins -list                 List plugins in a directory\n")
		fmt.Fprintf(os.Stderr, "  customizer -p ./plugins -describe dark-mode   Show one plugin's manifest\n")
		fmt.Fprintf(os.Stderr, "  customizer -host Website -host-version 1.2.0  Impersonate a website host\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Customizer %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	// Validate log level
	switch cli.logLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", cli.logLevel)
		os.Exit(1)
	}

	// Validate log format
	switch logFormat {
	case "text":
		cli.logFormat = app.LogFormatText
	case "json":
		cli.logFormat = app.LogFormatJSON
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log format %q (must be text or json)\n", logFormat)
		os.Exit(1)
	}

	// Validate host type
	parsed, err := env.ParseHostType(hostType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts.HostType = parsed
	opts.Version = hostVersion

	if pluginPaths != "" {
		for _, p := range strings.Split(pluginPaths, ",") {
			if p = strings.TrimSpace(p); p != "" {
				opts.PluginPaths = append(opts.PluginPaths, p)
			}
		}
	}

	return opts, cli
}
