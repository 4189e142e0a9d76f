package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-pdfbook/internal/config"
)

// envPrefix marks the CLI's environment variables.
const envPrefix = "PDFBOOK_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // PDFBOOK_CONFIG: manifest preset or path
	Workdir    string        // PDFBOOK_WORKDIR: cache directory
	Timeout    time.Duration // PDFBOOK_TIMEOUT: per-request timeout
	Workers    int           // PDFBOOK_WORKERS: parallel fetches
	Retries    int           // PDFBOOK_RETRIES: attempts per document
	PageSize   string        // PDFBOOK_PAGE_SIZE: a4, letter, legal
}

// knownEnvVars lists valid PDFBOOK_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"PDFBOOK_CONFIG":    true,
	"PDFBOOK_WORKDIR":   true,
	"PDFBOOK_TIMEOUT":   true,
	"PDFBOOK_WORKERS":   true,
	"PDFBOOK_RETRIES":   true,
	"PDFBOOK_PAGE_SIZE": true,
	"PDFBOOK_CONTAINER": true, // read by doctor
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and durations are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("PDFBOOK_CONFIG"),
		Workdir:    os.Getenv("PDFBOOK_WORKDIR"),
		PageSize:   os.Getenv("PDFBOOK_PAGE_SIZE"),
	}

	if timeout := os.Getenv("PDFBOOK_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	cfg.Workers = positiveEnvInt("PDFBOOK_WORKERS")
	cfg.Retries = positiveEnvInt("PDFBOOK_RETRIES")

	return cfg
}

func positiveEnvInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// warnUnknownEnvVars logs warnings for unrecognized PDFBOOK_* variables.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to the manifest.
// Env beats the config file, so set values replace manifest values.
// CLI flags are applied afterwards via mergeFlags.
// The timeout is resolved separately in resolveTimeout.
func applyEnvConfig(env *envConfig, m *config.Manifest) {
	if env.Workdir != "" {
		m.Workdir = env.Workdir
	}
	if env.Workers > 0 {
		m.Fetch.Workers = env.Workers
	}
	if env.Retries > 0 {
		m.Fetch.Retries = env.Retries
	}
	if env.PageSize != "" {
		m.Page.Size = env.PageSize
	}
}
