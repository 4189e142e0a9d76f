package main

import (
	"context"
	"io"
	"os"
	"time"

	pdfbook "github.com/alnah/go-pdfbook"
)

// bookBuilder is the part of *pdfbook.Builder the CLI uses.
type bookBuilder interface {
	Build(ctx context.Context, in pdfbook.Input) (*pdfbook.Result, error)
	Close() error
}

// Compile-time interface implementation check.
var _ bookBuilder = (*pdfbook.Builder)(nil)

// Environment holds injectable dependencies for testability.
// Includes I/O, time and the builder constructor.
type Environment struct {
	Now        func() time.Time
	Stdout     io.Writer
	Stderr     io.Writer
	NewBuilder func(opts ...pdfbook.Option) (bookBuilder, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:        time.Now,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		NewBuilder: newPDFBookBuilder,
	}
}

func newPDFBookBuilder(opts ...pdfbook.Option) (bookBuilder, error) {
	b, err := pdfbook.NewBuilder(opts...)
	if err != nil {
		return nil, err
	}
	return b, nil
}
