package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/raketrapport/raket/internal/model"
)

// Parser converts a bookkeeping export into a Ledger.
type Parser interface {
	Parse(r io.Reader) (model.Ledger, error)
	Format() string
	// Extensions lists the file extensions the parser claims, with the dot.
	Extensions() []string
}

// Registry holds named parsers.
type Registry struct {
	parsers    map[string]Parser
	extensions map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser), extensions: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format or extension.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
	for _, ext := range p.Extensions() {
		ext = strings.ToLower(ext)
		if _, ok := r.extensions[ext]; ok {
			panic("duplicate parser extension: " + ext)
		}
		r.extensions[ext] = p
	}
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// ForFile returns the parser claiming path's extension, or nil.
func (r *Registry) ForFile(path string) Parser {
	return r.extensions[strings.ToLower(filepath.Ext(path))]
}

// ParseFile reads path with the parser named by format, or the one picked
// by the file extension when format is empty.
func (r *Registry) ParseFile(path, format string) (model.Ledger, error) {
	var p Parser
	if format != "" {
		p = r.Get(format)
		if p == nil {
			return model.Ledger{}, fmt.Errorf("unknown input format %q", format)
		}
	} else {
		p = r.ForFile(path)
		if p == nil {
			return model.Ledger{}, fmt.Errorf("no parser for %s", filepath.Base(path))
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return model.Ledger{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ledger, err := p.Parse(f)
	if err != nil {
		return model.Ledger{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return ledger, nil
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&SEParser{})
	r.Register(&CSVParser{})
	return r
}
