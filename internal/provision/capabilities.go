package provision

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// CacheProvider supplies the directory repositories are provisioned into.
// The local filesystem implementation lives in internal/workspace; a
// remote-mounted cache satisfies the same interface. The coordinator never
// assumes a particular implementation is present.
type CacheProvider interface {
	Root() (string, error)
}

// RunHook runs after a completed run, successful or not. Hooks extend the
// surrounding session; absence of any hook is a normal, silent no-op.
type RunHook interface {
	AfterRun(ctx context.Context, summary Summary) error
}

// EnvFileHook exports the search-path ledger as a PYTHONPATH assignment so
// child shells and interactive sessions can import the provisioned packages.
type EnvFileHook struct {
	Path string
}

func (h EnvFileHook) AfterRun(_ context.Context, summary Summary) error {
	if h.Path == "" {
		return nil
	}
	env := map[string]string{
		"PYTHONPATH": strings.Join(summary.SearchPath, string(os.PathListSeparator)),
	}
	if err := godotenv.Write(env, h.Path); err != nil {
		return fmt.Errorf("writing env file: %w", err)
	}
	return nil
}
