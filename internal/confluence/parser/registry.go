package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Registry dispatches attachment filenames to the right parser.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser // key = ".ext"
}

// NewRegistry returns a registry with the built-in parsers registered.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}

	r.Register(&MarkdownParser{})
	r.Register(&PlainTextParser{})
	r.Register(&PDFParser{})
	r.Register(&DOCXParser{})

	return r
}

func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range p.SupportedTypes() {
		r.parsers[strings.ToLower(ext)] = p
	}
}

// Get selects a parser by file extension.
func (r *Registry) Get(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return nil, fmt.Errorf("no file extension in filename: %s", filename)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parsers[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s (supported: %s)", ext, r.SupportedTypes())
	}
	return p, nil
}

// SupportedTypes lists every registered extension.
func (r *Registry) SupportedTypes() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var types []string
	for ext := range r.parsers {
		types = append(types, ext)
	}
	return strings.Join(types, ", ")
}
