// Package git synchronizes local repository clones with their pinned
// manifest refs. Mutating operations go through the git CLI so that
// credential helpers, submodules and http.extraheader behave exactly as
// they do for an operator; read-only inspection uses go-git.
package git
