// ABOUTME: Interactive config file creation for the CLI
// ABOUTME: Prompts for server, database, hiring fee, inbound and logging settings and writes YAML

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/JuzerShakir/railsdevs.com/internal/config"
)

// getDataPath returns the path to the railsdevs data directory.
// Priority: XDG_DATA_HOME/railsdevs > ~/.local/share/railsdevs
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "railsdevs")
}

func runInit() error {
	return initConfig(bufio.NewReader(os.Stdin), os.Stdout)
}

func initConfig(reader *bufio.Reader, out io.Writer) error {
	fmt.Fprintln(out, "railsdevs-conversations configuration setup")
	fmt.Fprintln(out, "===========================================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, out, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var cfg config.Config

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	cfg.Server.HTTPAddr = prompt(reader, out, "HTTP address", config.DefaultHTTPAddr)

	fmt.Fprintln(out, "\n--- Database Configuration ---")
	cfg.Database.Path = prompt(reader, out, "SQLite database path", filepath.Join(getDataPath(), "conversations.db"))

	fmt.Fprintln(out, "\n--- Hiring Fee ---")
	cfg.HiringFee.GracePeriodRaw = prompt(reader, out, "Grace period", config.DefaultHiringFeeGracePeriod)

	fmt.Fprintln(out, "\n--- Inbound Email ---")
	cfg.Inbound.Domain = prompt(reader, out, "Reply domain (leave empty to disable)", "")
	if cfg.Inbound.Domain != "" {
		cfg.Inbound.DedupeTTLRaw = config.DefaultDedupeTTL
		cfg.Inbound.DedupeSize = config.DefaultDedupeSize
	}

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, out, "Log level (debug/info/warn/error)", config.DefaultLogLevel)
	cfg.Logging.Format = prompt(reader, out, "Log format (text/json)", config.DefaultLogFormat)

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	content := "# railsdevs-conversations configuration\n# Generated by railsdevs-conversations init\n\n" + string(data)

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Load it back to surface invalid answers
	if _, err := config.Load(outputFile); err != nil {
		color.Yellow("\nWarning: %v", err)
	}

	dataDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintf(out, "Data directory: %s\n", dataDir)
	return nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
