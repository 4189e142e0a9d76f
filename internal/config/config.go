package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-pdfbook/internal/fileutil"
	"github.com/alnah/go-pdfbook/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidField    = errors.New("invalid field value")
)

// AppDirName is the directory searched under the user config directory.
const AppDirName = "go-pdfbook"

// Field length limits.
const (
	MaxNameLength        = 100  // Book name
	MaxTitleLength       = 200  // Book, TOC and references titles
	MaxFilenameLength    = 255  // Output file name
	MaxPathLength        = 4096 // Workdir and asset paths
	MaxHeadingLength     = 200  // One TOC heading
	MaxHeadings          = 500  // Headings per book
	MaxPageSizeLength    = 10   // "letter", "a4", "legal"
	MaxOrientationLength = 10   // "portrait", "landscape"
	MaxStyleLength       = 64   // CSS style name
	MaxDurationLength    = 20   // "90s", "2m"
)

// Limits for fetch settings.
const (
	MaxWorkers        = 32
	MaxRetries        = 10
	MaxFolderDepthCap = 10
)

// Manifest describes one book: where it is written, how its pages are titled
// and how its documents are fetched.
type Manifest struct {
	Name            string       `yaml:"name"`
	Title           string       `yaml:"title"`
	OutputFilename  string       `yaml:"outputFilename"`
	Workdir         string       `yaml:"workdir"`
	Headings        []string     `yaml:"headings"`        // Matched to resolved documents by position
	SectionHeadings []string     `yaml:"sectionHeadings"` // Group labels, they consume no document
	TOCTitle        string       `yaml:"tocTitle"`        // Default "Table of Contents"
	ReferencesTitle string       `yaml:"referencesTitle"` // Default "References & External Links"
	NumberAllPages  bool         `yaml:"numberAllPages"`  // Number cover and TOC pages too
	Page            PageConfig   `yaml:"page"`
	Fetch           FetchConfig  `yaml:"fetch"`
	Assets          AssetsConfig `yaml:"assets"`
}

// PageConfig defines printed page settings for generated pages.
type PageConfig struct {
	Size        string  `yaml:"size"`        // "letter", "a4", "legal" (default: "letter")
	Orientation string  `yaml:"orientation"` // "portrait", "landscape" (default: "portrait")
	Margin      float64 `yaml:"margin"`      // inches (default: 0.5)
}

// FetchConfig defines network behavior. Zero values mean library defaults.
type FetchConfig struct {
	Timeout        string `yaml:"timeout"`        // Go duration, per request
	Workers        int    `yaml:"workers"`        // Concurrent fetches
	Retries        int    `yaml:"retries"`        // Attempts per document, 1 = no retry
	MaxFolderDepth int    `yaml:"maxFolderDepth"` // Nested Drive folder bound
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
	Style    string `yaml:"style"`    // CSS style name (default: "book")
}

// TimeoutDuration parses Fetch.Timeout. Returns 0 when unset.
func (f FetchConfig) TimeoutDuration() (time.Duration, error) {
	if f.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch.timeout: %v", ErrInvalidField, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: fetch.timeout: must be positive, got %s", ErrInvalidField, f.Timeout)
	}
	return d, nil
}

// TrimmedHeadings returns Headings in order with surrounding whitespace removed.
func (m *Manifest) TrimmedHeadings() []string {
	out := make([]string, len(m.Headings))
	for i, h := range m.Headings {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// IsSection reports whether heading is a group label.
func (m *Manifest) IsSection(heading string) bool {
	heading = strings.TrimSpace(heading)
	for _, s := range m.SectionHeadings {
		if strings.EqualFold(strings.TrimSpace(s), heading) {
			return true
		}
	}
	return false
}

// Validate checks field lengths and enumerated values.
// Called automatically by LoadManifest, but available for callers
// who construct a Manifest manually.
func (m *Manifest) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"name", m.Name, MaxNameLength},
		{"title", m.Title, MaxTitleLength},
		{"outputFilename", m.OutputFilename, MaxFilenameLength},
		{"workdir", m.Workdir, MaxPathLength},
		{"tocTitle", m.TOCTitle, MaxTitleLength},
		{"referencesTitle", m.ReferencesTitle, MaxTitleLength},
		{"page.size", m.Page.Size, MaxPageSizeLength},
		{"page.orientation", m.Page.Orientation, MaxOrientationLength},
		{"fetch.timeout", m.Fetch.Timeout, MaxDurationLength},
		{"assets.basePath", m.Assets.BasePath, MaxPathLength},
		{"assets.style", m.Assets.Style, MaxStyleLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if len(m.Headings) > MaxHeadings {
		return fmt.Errorf("%w: headings (%d entries, max %d)", ErrFieldTooLong, len(m.Headings), MaxHeadings)
	}
	for i, h := range m.Headings {
		if err := validateFieldLength(fmt.Sprintf("headings[%d]", i), h, MaxHeadingLength); err != nil {
			return err
		}
	}
	for i, h := range m.SectionHeadings {
		if err := validateFieldLength(fmt.Sprintf("sectionHeadings[%d]", i), h, MaxHeadingLength); err != nil {
			return err
		}
	}

	if m.OutputFilename != "" && (strings.ContainsAny(m.OutputFilename, "/\\\x00") || m.OutputFilename == "..") {
		return fmt.Errorf("%w: outputFilename: must be a file name, got %q", ErrInvalidField, m.OutputFilename)
	}

	if m.Page.Size != "" {
		switch strings.ToLower(m.Page.Size) {
		case "letter", "a4", "legal":
		default:
			return fmt.Errorf("%w: page.size: %q (must be letter, a4, or legal)", ErrInvalidField, m.Page.Size)
		}
	}
	if m.Page.Orientation != "" {
		switch strings.ToLower(m.Page.Orientation) {
		case "portrait", "landscape":
		default:
			return fmt.Errorf("%w: page.orientation: %q (must be portrait or landscape)", ErrInvalidField, m.Page.Orientation)
		}
	}
	if m.Page.Margin < 0 || m.Page.Margin > 3 {
		return fmt.Errorf("%w: page.margin: must be between 0 and 3 inches, got %.2f", ErrInvalidField, m.Page.Margin)
	}

	if _, err := m.Fetch.TimeoutDuration(); err != nil {
		return err
	}
	if m.Fetch.Workers < 0 || m.Fetch.Workers > MaxWorkers {
		return fmt.Errorf("%w: fetch.workers: must be between 0 and %d, got %d", ErrInvalidField, MaxWorkers, m.Fetch.Workers)
	}
	if m.Fetch.Retries < 0 || m.Fetch.Retries > MaxRetries {
		return fmt.Errorf("%w: fetch.retries: must be between 0 and %d, got %d", ErrInvalidField, MaxRetries, m.Fetch.Retries)
	}
	if m.Fetch.MaxFolderDepth < 0 || m.Fetch.MaxFolderDepth > MaxFolderDepthCap {
		return fmt.Errorf("%w: fetch.maxFolderDepth: must be between 0 and %d, got %d", ErrInvalidField, MaxFolderDepthCap, m.Fetch.MaxFolderDepth)
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadManifest loads a book manifest from a file path or name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise it's searched in standard locations, then among the built-in
// presets. Returns error if nothing matches (no silent fallback).
func LoadManifest(nameOrPath string) (*Manifest, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		path, err := resolveConfigPath(nameOrPath)
		if err != nil {
			if preset, ok := Preset(nameOrPath); ok {
				return preset, nil
			}
			return nil, err
		}
		configPath = path
	}

	var m Manifest
	if err := yamlutil.ReadFile(configPath, &m); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		case errors.Is(err, yamlutil.ErrDecode),
			errors.Is(err, yamlutil.ErrEmptyDocument),
			errors.Is(err, yamlutil.ErrDocumentTooLarge):
			return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
		default:
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath))
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// SearchPaths returns the locations LoadManifest tries for name, in order.
// Tries extensions .yaml then .yml, in the current directory, then in
// the user config directory (~/.config/go-pdfbook/ on Linux).
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, AppDirName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath searches for a config file by name in standard locations.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, path := range tried {
		if fileutil.FileExists(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
