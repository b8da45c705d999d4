package fleet

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/temirov/gitfleet/internal/gitrepo"
)

const (
	repositoryIdentifierSeparatorConstant = "/"
	repositoryIdentifierPartCountConstant = 2
	invalidIdentifierTemplateConstant     = "%w: %q"
	missingBranchTemplateConstant         = "%w: %q has no branch"
	remoteURLFailureTemplateConstant      = "unable to build remote URL for %q: %w"
	invalidIdentifierMessageConstant      = "repository identifier must have the form owner/name"
	invalidBranchMessageConstant          = "repository branch must be non-empty"
	duplicateDirectoryMessageConstant     = "repository directory is claimed by more than one identifier"
	duplicateDirectoryTemplateConstant    = "%w: %q and %q both use %q"
)

// ErrInvalidRepositoryIdentifier indicates an identifier did not split into owner and name.
var ErrInvalidRepositoryIdentifier = errors.New(invalidIdentifierMessageConstant)

// ErrInvalidRepositoryBranch indicates a target was declared without a branch.
var ErrInvalidRepositoryBranch = errors.New(invalidBranchMessageConstant)

// ErrDuplicateRepositoryDirectory indicates two identifiers share a repository name and
// would reconcile inside the same working directory.
var ErrDuplicateRepositoryDirectory = errors.New(duplicateDirectoryMessageConstant)

// RepositoryTarget is the desired state of one repository. RemoteURL is derived
// from Owner and Name and is never set independently.
type RepositoryTarget struct {
	Identifier string
	Owner      string
	Name       string
	Branch     string
	RemoteURL  string
}

// NewRepositoryTarget splits an owner/name identifier and derives the canonical remote on host.
func NewRepositoryTarget(identifier string, branch string, host string) (RepositoryTarget, error) {
	identifierParts := strings.Split(identifier, repositoryIdentifierSeparatorConstant)
	if len(identifierParts) != repositoryIdentifierPartCountConstant || len(identifierParts[0]) == 0 || len(identifierParts[1]) == 0 {
		return RepositoryTarget{}, fmt.Errorf(invalidIdentifierTemplateConstant, ErrInvalidRepositoryIdentifier, identifier)
	}
	if len(strings.TrimSpace(branch)) == 0 {
		return RepositoryTarget{}, fmt.Errorf(missingBranchTemplateConstant, ErrInvalidRepositoryBranch, identifier)
	}

	owner, name := identifierParts[0], identifierParts[1]
	remoteURL, remoteError := gitrepo.FormatRemoteURL(gitrepo.RemoteURL{Host: host, Owner: owner, Repository: name})
	if remoteError != nil {
		return RepositoryTarget{}, fmt.Errorf(remoteURLFailureTemplateConstant, identifier, remoteError)
	}

	return RepositoryTarget{
		Identifier: identifier,
		Owner:      owner,
		Name:       name,
		Branch:     branch,
		RemoteURL:  remoteURL,
	}, nil
}

// BuildTargets constructs one target per submodule entry, ordered by identifier. Every
// target owns a distinct working directory, so identifiers that differ only by owner are
// rejected with ErrDuplicateRepositoryDirectory.
func BuildTargets(submodules map[string]string, host string) ([]RepositoryTarget, error) {
	identifiers := make([]string, 0, len(submodules))
	for identifier := range submodules {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)

	targets := make([]RepositoryTarget, 0, len(identifiers))
	identifiersByDirectory := make(map[string]string, len(identifiers))
	for _, identifier := range identifiers {
		target, targetError := NewRepositoryTarget(identifier, submodules[identifier], host)
		if targetError != nil {
			return nil, targetError
		}
		if claimingIdentifier, claimed := identifiersByDirectory[target.Name]; claimed {
			return nil, fmt.Errorf(duplicateDirectoryTemplateConstant, ErrDuplicateRepositoryDirectory, claimingIdentifier, identifier, target.Name)
		}
		identifiersByDirectory[target.Name] = identifier
		targets = append(targets, target)
	}
	return targets, nil
}
