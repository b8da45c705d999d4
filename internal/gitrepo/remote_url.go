package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshRemoteTemplateConstant        = "git@%s:%s/%s.git"
	remoteURLErrorTemplateConstant   = "%s: %s"
	requiredValueMessageConstant     = "value required"
	ownerFieldLabelConstant          = "owner"
	repositoryFieldLabelConstant     = "repository"
	hostFieldLabelConstant           = "host"
	ownerRepositorySeparatorConstant = "/"
)

// RemoteURL identifies a repository on an SSH git host.
type RemoteURL struct {
	Host       string
	Owner      string
	Repository string
}

// RemoteURLError indicates a remote URL could not be formatted.
type RemoteURLError struct {
	Field   string
	Message string
}

// Error describes the formatting failure.
func (remoteError RemoteURLError) Error() string {
	return fmt.Sprintf(remoteURLErrorTemplateConstant, remoteError.Field, remoteError.Message)
}

// FormatRemoteURL renders the canonical SSH remote <host>:<owner>/<repository>.git
// prefixed with the git user. The result is compared byte-for-byte with the
// configured origin URL, so no normalization is applied beyond trimming.
func FormatRemoteURL(remote RemoteURL) (string, error) {
	host := strings.TrimSpace(remote.Host)
	if len(host) == 0 {
		return "", RemoteURLError{Field: hostFieldLabelConstant, Message: requiredValueMessageConstant}
	}
	owner := strings.TrimSpace(remote.Owner)
	if len(owner) == 0 || strings.Contains(owner, ownerRepositorySeparatorConstant) {
		return "", RemoteURLError{Field: ownerFieldLabelConstant, Message: requiredValueMessageConstant}
	}
	repository := strings.TrimSpace(remote.Repository)
	if len(repository) == 0 || strings.Contains(repository, ownerRepositorySeparatorConstant) {
		return "", RemoteURLError{Field: repositoryFieldLabelConstant, Message: requiredValueMessageConstant}
	}
	return fmt.Sprintf(sshRemoteTemplateConstant, host, owner, repository), nil
}
