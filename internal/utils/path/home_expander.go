package pathutils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant               = "~"
	tildeForwardSlashPrefixConstant   = "~/"
	emptyHomeDirectoryMessageConstant = "home directory is empty"
)

// ErrHomeDirectoryUnavailable indicates that the home directory could not be determined.
var ErrHomeDirectoryUnavailable = errors.New(emptyHomeDirectoryMessageConstant)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander resolves the home directory once and expands tilde prefixes against it.
// Both the workspace path and the ambient HOME passed to git read from the same lookup.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewHomeExpander constructs a HomeExpander using the operating system lookup.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with a custom provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// HomeDirectory returns the cached home directory or the lookup failure.
func (expander *HomeExpander) HomeDirectory() (string, error) {
	expander.initializationGuard.Do(func() {
		expander.homeDirectory, expander.homeDirectoryError = expander.homeDirectoryProvider()
		if expander.homeDirectoryError == nil && len(strings.TrimSpace(expander.homeDirectory)) == 0 {
			expander.homeDirectoryError = ErrHomeDirectoryUnavailable
		}
	})
	return expander.homeDirectory, expander.homeDirectoryError
}

// Expand resolves leading tilde prefixes to the user's home directory. Paths without a
// tilde prefix, and every path when the home directory is unknown, are returned unchanged.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	homeDirectory, homeDirectoryError := expander.HomeDirectory()
	if homeDirectoryError != nil {
		return candidatePath
	}

	if candidatePath == tildeSymbolConstant {
		return homeDirectory
	}

	for _, prefix := range []string{tildeForwardSlashPrefixConstant, tildeSymbolConstant + string(os.PathSeparator)} {
		if strings.HasPrefix(candidatePath, prefix) {
			return filepath.Join(homeDirectory, strings.TrimPrefix(candidatePath, prefix))
		}
	}

	return candidatePath
}

// ResolveDirectory expands the tilde prefix and returns an absolute, cleaned path.
func (expander *HomeExpander) ResolveDirectory(candidatePath string) (string, error) {
	return filepath.Abs(expander.Expand(candidatePath))
}
