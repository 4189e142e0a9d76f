package hints

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestBrowserHints - Suggestions depend on environment and container state
// ---------------------------------------------------------------------------

func TestBrowserHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		vars      map[string]string
		container bool
		want      []string
		wantNot   []string
	}{
		{
			name: "CI without sandbox override",
			vars: map[string]string{"CI": "true"},
			want: []string{"ROD_NO_SANDBOX", "ROD_BROWSER_BIN"},
		},
		{
			name:      "docker",
			container: true,
			want:      []string{"ROD_NO_SANDBOX"},
		},
		{
			name:      "sandbox already disabled",
			vars:      map[string]string{"ROD_NO_SANDBOX": "1"},
			container: true,
			wantNot:   []string{"ROD_NO_SANDBOX"},
		},
		{
			name:    "browser bin set on a plain host",
			vars:    map[string]string{"ROD_BROWSER_BIN": "/usr/bin/chrome"},
			wantNot: []string{"ROD_BROWSER_BIN", "ROD_NO_SANDBOX"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hint := browserHints(func(k string) string { return tt.vars[k] }, tt.container)
			for _, w := range tt.want {
				if !strings.Contains(hint, w) {
					t.Errorf("hint %q missing %q", hint, w)
				}
			}
			for _, w := range tt.wantNot {
				if strings.Contains(hint, w) {
					t.Errorf("hint %q should not mention %q", hint, w)
				}
			}
		})
	}

	t.Run("fully configured CI gives no hint", func(t *testing.T) {
		t.Parallel()

		vars := map[string]string{"GITLAB_CI": "1", "ROD_NO_SANDBOX": "1", "ROD_BROWSER_BIN": "/usr/bin/chrome"}
		if hint := browserHints(func(k string) string { return vars[k] }, true); hint != "" {
			t.Errorf("browserHints() = %q, want empty", hint)
		}
	})
}

// ---------------------------------------------------------------------------
// TestForConfigNotFound - Manifest lookup advice
// ---------------------------------------------------------------------------

func TestForConfigNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		paths    []string
		presets  []string
		contains []string
	}{
		{name: "no paths", contains: []string{"--config"}},
		{
			name:     "user config path",
			paths:    []string{"./book.yaml", "/home/u/.config/go-pdfbook/book.yaml"},
			contains: []string{"create /home/u/.config/go-pdfbook/book.yaml"},
		},
		{
			name:     "presets listed",
			paths:    []string{"./book.yaml"},
			presets:  []string{"agentic"},
			contains: []string{"--config", "built-in presets: agentic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hint := ForConfigNotFound(tt.paths, tt.presets)
			for _, want := range tt.contains {
				if !strings.Contains(hint, want) {
					t.Errorf("hint %q missing %q", hint, want)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSingleHints - Fixed advice strings share one format
// ---------------------------------------------------------------------------

func TestSingleHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hint string
		want string
	}{
		{name: "timeout", hint: ForTimeout(), want: "--timeout"},
		{name: "output directory", hint: ForOutputDirectory(), want: "parent directory"},
		{name: "workdir", hint: ForWorkdir(), want: "PDFBOOK_WORKDIR"},
		{name: "auth required", hint: ForAuthRequired(2), want: "anyone with the link"},
		{name: "cover image", hint: ForCoverImage(), want: "PNG"},
		{name: "config not found", hint: ForConfigNotFound(nil, nil), want: "--config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if !strings.HasPrefix(tt.hint, "\n  hint: ") {
				t.Errorf("hint format inconsistent: %q", tt.hint)
			}
			if !strings.Contains(tt.hint, tt.want) {
				t.Errorf("hint %q missing %q", tt.hint, tt.want)
			}
		})
	}

	if h := ForAuthRequired(0); h != "" {
		t.Errorf("ForAuthRequired(0) = %q, want empty", h)
	}
}
