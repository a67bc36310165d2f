package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"cuelang.org/go/cue/token"

	"github.com/roach88/distill/internal/compiler"
	"github.com/roach88/distill/internal/kv"
	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/rdf"
	"github.com/roach88/distill/internal/store"
)

// LoadError represents an error that occurred while loading layouts or
// datasets.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load or layout compilation failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeInvalidInput = "E006" // Unparseable term, value or N-Quads
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeStoreFailed  = "E008" // Database open, read or write error
)

// LoadLayouts compiles the layouts at path, a CUE package directory or a
// single .cue file.
func LoadLayouts(path string) (*layout.Registry, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("layouts not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing layouts: %v", err)}
	}

	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
	}

	reg, err := compiler.Load(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return reg, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: compileErr.Field + ": " + compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// DatasetOptions selects where a command reads or writes quads.
type DatasetOptions struct {
	DB string // SQLite database path
	KV string // Badger directory
}

// dataset is an open quad source. insert is nil for N-Quads files and
// close may be called more than once.
type dataset struct {
	rdf.Dataset
	insert func(ctx context.Context, quads ...rdf.Quad) (int, error)
	close  func() error
}

// openDataset opens the dataset named by exactly one of file, opts.DB and
// opts.KV. A file named "-" is read from stdin.
func openDataset(ctx context.Context, logger *slog.Logger, file string, stdin io.Reader, opts DatasetOptions) (*dataset, error) {
	n := 0
	for _, s := range []string{file, opts.DB, opts.KV} {
		if s != "" {
			n++
		}
	}
	if n != 1 {
		return nil, &LoadError{Code: ErrCodeInvalidInput, Message: "exactly one of an N-Quads file, --db and --kv is required"}
	}

	switch {
	case opts.DB != "":
		s, err := store.Open(opts.DB, store.WithLogger(logger))
		if err != nil {
			return nil, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error()}
		}
		return &dataset{Dataset: s.View(ctx), insert: s.Insert, close: sync.OnceValue(s.Close)}, nil
	case opts.KV != "":
		db, err := kv.Open(opts.KV, kv.WithLogger(logger))
		if err != nil {
			return nil, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error()}
		}
		return &dataset{Dataset: db, insert: db.Insert, close: sync.OnceValue(db.Close)}, nil
	default:
		mem, err := readNQuadsFile(file, stdin)
		if err != nil {
			return nil, err
		}
		return &dataset{Dataset: mem, close: func() error { return nil }}, nil
	}
}

// readNQuadsFile parses an N-Quads file; "-" reads stdin.
func readNQuadsFile(path string, stdin io.Reader) (*rdf.Memory, error) {
	f, err := openInput(path, stdin)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mem, err := rdf.ReadNQuads(f)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidInput, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return mem, nil
}

// openInput opens path for reading; "-" is stdin.
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	return f, nil
}

// parseTerms parses N-Quads terms given on the command line.
func parseTerms(ss []string) ([]rdf.Term, error) {
	terms := make([]rdf.Term, len(ss))
	for i, s := range ss {
		t, err := rdf.ParseTerm(s)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeInvalidInput, Message: fmt.Sprintf("input %d: %v", i, err)}
		}
		terms[i] = t
	}
	return terms, nil
}

// parseGraph parses the --graph flag; empty is the default graph.
func parseGraph(s string) (rdf.Term, error) {
	if s == "" {
		return rdf.DefaultGraph, nil
	}
	t, err := rdf.ParseTerm(s)
	if err != nil || !t.IsResource() {
		return rdf.Term{}, &LoadError{Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid graph %q", s)}
	}
	return t, nil
}
