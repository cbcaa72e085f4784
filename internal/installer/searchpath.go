package installer

import (
	"os"
	"strings"
	"sync"
)

// SearchPath is the ordered ledger of project roots made importable during a
// run. Entries are prepended once and record which repository inserted them,
// so priority and ownership stay explicit instead of leaking into global
// process state.
type SearchPath struct {
	mu      sync.Mutex
	entries []string
	owners  map[string]string
}

func NewSearchPath() *SearchPath {
	return &SearchPath{owners: make(map[string]string)}
}

// Prepend inserts path at the front of the ledger on behalf of owner.
// Returns false when the path is already present; an existing entry keeps
// its position and owner.
func (p *SearchPath) Prepend(path, owner string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.owners[path]; ok {
		return false
	}
	p.entries = append([]string{path}, p.entries...)
	p.owners[path] = owner
	return true
}

// Contains reports whether path is in the ledger.
func (p *SearchPath) Contains(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.owners[path]
	return ok
}

// Owner returns the repository that inserted path.
func (p *SearchPath) Owner(path string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.owners[path]
	return o, ok
}

// Entries returns the ordered ledger, front first.
func (p *SearchPath) Entries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.entries))
	copy(out, p.entries)
	return out
}

// PythonPath renders the ledger as a PYTHONPATH value, with the inherited
// value appended after the ledger entries.
func (p *SearchPath) PythonPath(inherited string) string {
	parts := p.Entries()
	if inherited != "" {
		parts = append(parts, inherited)
	}
	return strings.Join(parts, string(os.PathListSeparator))
}
