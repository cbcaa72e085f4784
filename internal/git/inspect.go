package git

import (
	"fmt"

	gogit "github.com/go-git/go-git/v5"
)

// IsCloned reports whether dir holds an existing checkout.
func IsCloned(dir string) bool {
	_, err := gogit.PlainOpen(dir)
	return err == nil
}

// HeadCommit returns the abbreviated commit hash of HEAD.
func HeadCommit(dir string) (string, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return ref.Hash().String()[:8], nil
}
