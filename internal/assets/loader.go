package assets

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

//go:embed styles templates
var embedded embed.FS

// Kind selects the directory and extension of an asset.
type Kind int

const (
	Style Kind = iota
	Template
)

func (k Kind) path(name string) string {
	if k == Style {
		return "styles/" + name + ".css"
	}
	return "templates/" + name + ".html"
}

func (k Kind) notFound() error {
	if k == Style {
		return ErrStyleNotFound
	}
	return ErrTemplateNotFound
}

// Loader reads assets from a custom directory, falling back to the
// embedded defaults. The zero value is not usable; call NewLoader.
type Loader struct {
	root   *os.Root // nil without a custom directory
	layers []fs.FS
}

// NewLoader returns a loader over basePath and the embedded assets. An
// empty basePath uses the embedded assets only.
func NewLoader(basePath string) (*Loader, error) {
	l := &Loader{}
	if basePath != "" {
		info, err := os.Stat(basePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidBasePath, basePath)
		}
		root, err := os.OpenRoot(basePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
		}
		l.root = root
		l.layers = append(l.layers, root.FS())
	}
	l.layers = append(l.layers, embedded)
	return l, nil
}

// Close releases the custom directory.
func (l *Loader) Close() error {
	if l.root == nil {
		return nil
	}
	return l.root.Close()
}

// Load returns the named asset from the first layer holding it. Only a
// missing file moves on to the next layer; read errors are returned.
func (l *Loader) Load(kind Kind, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	p := kind.path(name)
	for _, layer := range l.layers {
		data, err := fs.ReadFile(layer, p)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s: %v", ErrAssetRead, p, err)
		}
	}
	return "", fmt.Errorf("%w: %q", kind.notFound(), name)
}

// Style loads styles/<name>.css.
func (l *Loader) Style(name string) (string, error) {
	return l.Load(Style, name)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
