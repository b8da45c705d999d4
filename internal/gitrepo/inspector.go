package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

const (
	runnerMissingMessageConstant           = "git runner not configured"
	fileSystemMissingMessageConstant       = "file system not configured"
	remoteURLQueryArgumentsConstant        = "config --get remote.origin.url"
	currentBranchQueryArgumentsConstant    = "symbolic-ref --short -q HEAD"
	localBranchQueryTemplateConstant       = "branch --list -q --no-color %s"
	missingBranchErrorTemplateConstant     = "branch %s does not exist locally in %s"
	detachedHeadErrorTemplateConstant      = "HEAD is not on a branch in %s"
	existenceCheckFailureTemplateConstant  = "unable to inspect %s: %w"
	currentBranchMarkerConstant            = "*"
	symbolicRefNotSymbolicExitCodeConstant = 1
	branchListLineSeparatorConstant        = "\n"
)

// ErrGitRunnerNotConfigured indicates the inspector was constructed without a runner.
var ErrGitRunnerNotConfigured = errors.New(runnerMissingMessageConstant)

// ErrFileSystemNotConfigured indicates the inspector was constructed without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// GitCommandRunner runs git argument strings and returns trimmed standard output.
type GitCommandRunner interface {
	Run(executionContext context.Context, argumentString string, workingDirectory string, environmentOverrides map[string]string) (string, error)
}

// FileStatter reports file metadata.
type FileStatter interface {
	Stat(path string) (fs.FileInfo, error)
}

// MissingBranchError reports that a branch is absent from the local branch list.
type MissingBranchError struct {
	RepositoryPath string
	BranchName     string
}

// Error describes the missing branch.
func (missingBranchError MissingBranchError) Error() string {
	return fmt.Sprintf(missingBranchErrorTemplateConstant, missingBranchError.BranchName, missingBranchError.RepositoryPath)
}

// DetachedHeadError reports that HEAD does not reference a branch.
type DetachedHeadError struct {
	RepositoryPath string
}

// Error describes the detached HEAD.
func (detachedHeadError DetachedHeadError) Error() string {
	return fmt.Sprintf(detachedHeadErrorTemplateConstant, detachedHeadError.RepositoryPath)
}

// Inspector answers read-only questions about a working copy.
type Inspector struct {
	runner      GitCommandRunner
	fileSystem  FileStatter
	environment AmbientEnvironment
}

// NewInspector constructs an Inspector that runs every query with the ambient environment.
func NewInspector(runner GitCommandRunner, fileSystem FileStatter, environment AmbientEnvironment) (*Inspector, error) {
	if runner == nil {
		return nil, ErrGitRunnerNotConfigured
	}
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &Inspector{runner: runner, fileSystem: fileSystem, environment: environment}, nil
}

// Exists reports whether a directory is present at repositoryPath.
func (inspector *Inspector) Exists(repositoryPath string) (bool, error) {
	fileInfo, statError := inspector.fileSystem.Stat(repositoryPath)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf(existenceCheckFailureTemplateConstant, repositoryPath, statError)
	}
	return fileInfo.IsDir(), nil
}

// CurrentRemoteURL returns the configured origin URL.
func (inspector *Inspector) CurrentRemoteURL(executionContext context.Context, repositoryPath string) (string, error) {
	return inspector.runner.Run(executionContext, remoteURLQueryArgumentsConstant, repositoryPath, inspector.environment.Overrides())
}

// CurrentBranch returns the short name of the branch HEAD references. A detached HEAD
// yields DetachedHeadError.
func (inspector *Inspector) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	branchName, runError := inspector.runner.Run(executionContext, currentBranchQueryArgumentsConstant, repositoryPath, inspector.environment.Overrides())
	if runError != nil {
		var commandError CommandError
		if errors.As(runError, &commandError) && commandError.ExitCode == symbolicRefNotSymbolicExitCodeConstant && len(commandError.Diagnostic) == 0 {
			return "", DetachedHeadError{RepositoryPath: repositoryPath}
		}
		return "", runError
	}
	if len(branchName) == 0 {
		return "", DetachedHeadError{RepositoryPath: repositoryPath}
	}
	return branchName, nil
}

// LocalBranchExists reports whether branchName is present in the local branch list.
// An absent branch is reported as MissingBranchError so callers can tell it apart from
// a failed query.
func (inspector *Inspector) LocalBranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error) {
	branchList, runError := inspector.runner.Run(executionContext, fmt.Sprintf(localBranchQueryTemplateConstant, branchName), repositoryPath, inspector.environment.Overrides())
	if runError != nil {
		return false, runError
	}
	for _, branchLine := range strings.Split(branchList, branchListLineSeparatorConstant) {
		listedBranch := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(branchLine), currentBranchMarkerConstant))
		if listedBranch == branchName {
			return true, nil
		}
	}
	return false, MissingBranchError{RepositoryPath: repositoryPath, BranchName: branchName}
}
