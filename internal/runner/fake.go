package runner

import (
	"context"
	"strings"
	"sync"
)

// Fake records issued commands without spawning processes. Tests inject a
// Handler to script results or failures for specific command lines.
type Fake struct {
	mu      sync.Mutex
	Calls   []Command
	Handler func(Command) (Result, error)
}

func (f *Fake) Run(_ context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	f.mu.Unlock()
	if f.Handler != nil {
		return f.Handler(cmd)
	}
	return Result{}, nil
}

// CommandLines renders recorded calls as space-joined argv strings.
func (f *Fake) CommandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = strings.Join(c.Argv, " ")
	}
	return lines
}
