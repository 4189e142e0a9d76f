// Package yamlutil reads and writes the YAML files pdfbook keeps on disk:
// book manifests and the page index artifact.
package yamlutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/alnah/go-pdfbook/internal/fileutil"
)

// MaxDocumentSize bounds any YAML file pdfbook will decode.
const MaxDocumentSize = 1 << 20

var (
	ErrEmptyDocument    = errors.New("yamlutil: empty document")
	ErrDocumentTooLarge = errors.New("yamlutil: document exceeds size limit")
	ErrNilTarget        = errors.New("yamlutil: nil decode target")
	ErrDecode           = errors.New("yamlutil: decode failed")
)

// Decode parses data into v. Fields v does not declare are rejected so a
// misspelled manifest key fails loudly instead of being ignored.
func Decode(data []byte, v any) error {
	if v == nil {
		return ErrNilTarget
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyDocument
	}
	if len(data) > MaxDocumentSize {
		return fmt.Errorf("%w: %d bytes", ErrDocumentTooLarge, len(data))
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// ReadFile decodes the YAML file at path into v. Read errors keep their
// os cause so callers can test for fs.ErrNotExist.
func ReadFile(path string, v any) error {
	f, err := os.Open(path) // #nosec G304 -- caller-provided path
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, MaxDocumentSize+1))
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(data, v)
}

// Encode renders v with two-space indentation and indented sequences.
func Encode(v any) ([]byte, error) {
	out, err := yaml.MarshalWithOptions(v, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return nil, fmt.Errorf("yamlutil: encode: %w", err)
	}
	return out, nil
}

// WriteFile encodes v and replaces path atomically.
func WriteFile(path string, v any, perm os.FileMode) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, data, perm)
}
