package fleet_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/gitfleet/internal/execshell"
	"github.com/temirov/gitfleet/internal/filesystem"
	"github.com/temirov/gitfleet/internal/fleet"
	"github.com/temirov/gitfleet/internal/gitrepo"
)

const (
	integrationGitExecutableConstant = "git"
	integrationHostConstant          = "github.com"
	integrationIdentifierConstant    = "acme/widgets"
	integrationReadmeNameConstant    = "README.md"
	integrationGitConfigTemplate     = "[user]\n\tname = Fleet Tester\n\temail = fleet@example.com\n[url \"%s/\"]\n\tinsteadOf = git@github.com:\n[protocol \"file\"]\n\tallow = always\n"
)

type gitSandbox struct {
	homeDirectory string
	remotesRoot   string
	workspace     string
}

func newGitSandbox(testInstance *testing.T) gitSandbox {
	testInstance.Helper()
	if _, lookupError := exec.LookPath(integrationGitExecutableConstant); lookupError != nil {
		testInstance.Skip("git executable not available")
	}

	rootDirectory := testInstance.TempDir()
	sandbox := gitSandbox{
		homeDirectory: filepath.Join(rootDirectory, "home"),
		remotesRoot:   filepath.Join(rootDirectory, "remotes"),
		workspace:     filepath.Join(rootDirectory, "workspace"),
	}
	for _, directory := range []string{sandbox.homeDirectory, sandbox.remotesRoot, sandbox.workspace} {
		require.NoError(testInstance, os.MkdirAll(directory, 0o755))
	}

	gitConfigPath := filepath.Join(sandbox.homeDirectory, ".gitconfig")
	gitConfigContents := fmt.Sprintf(integrationGitConfigTemplate, sandbox.remotesRoot)
	require.NoError(testInstance, os.WriteFile(gitConfigPath, []byte(gitConfigContents), 0o600))
	testInstance.Setenv("GIT_CONFIG_GLOBAL", gitConfigPath)
	testInstance.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	seedPath := filepath.Join(rootDirectory, "seed")
	sandbox.git(testInstance, rootDirectory, "init", "-q", seedPath)
	sandbox.git(testInstance, seedPath, "symbolic-ref", "HEAD", "refs/heads/main")
	require.NoError(testInstance, os.WriteFile(filepath.Join(seedPath, integrationReadmeNameConstant), []byte("widgets\n"), 0o600))
	sandbox.git(testInstance, seedPath, "add", integrationReadmeNameConstant)
	sandbox.git(testInstance, seedPath, "commit", "-q", "-m", "initial")
	sandbox.git(testInstance, seedPath, "branch", "release")
	sandbox.git(testInstance, rootDirectory, "clone", "-q", "--bare", seedPath, filepath.Join(sandbox.remotesRoot, "acme", "widgets.git"))

	return sandbox
}

func (sandbox gitSandbox) git(testInstance *testing.T, workingDirectory string, arguments ...string) string {
	testInstance.Helper()
	command := exec.Command(integrationGitExecutableConstant, arguments...)
	command.Dir = workingDirectory
	command.Env = append(os.Environ(), "HOME="+sandbox.homeDirectory)
	outputBytes, runError := command.CombinedOutput()
	require.NoError(testInstance, runError, string(outputBytes))
	return strings.TrimSpace(string(outputBytes))
}

func (sandbox gitSandbox) reconciler(testInstance *testing.T) *fleet.Reconciler {
	testInstance.Helper()
	environment := gitrepo.AmbientEnvironment{HomeDirectory: sandbox.homeDirectory}

	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner())
	require.NoError(testInstance, executorError)
	runner, runnerError := gitrepo.NewRunner(executor)
	require.NoError(testInstance, runnerError)
	inspector, inspectorError := gitrepo.NewInspector(runner, filesystem.OSFileSystem{}, environment)
	require.NoError(testInstance, inspectorError)
	reconciler, reconcilerError := fleet.NewReconciler(zap.NewNop(), runner, inspector, environment, sandbox.workspace)
	require.NoError(testInstance, reconcilerError)
	return reconciler
}

func reconcileSuccessfully(testInstance *testing.T, reconciler *fleet.Reconciler, branch string) string {
	testInstance.Helper()
	target, targetError := fleet.NewRepositoryTarget(integrationIdentifierConstant, branch, integrationHostConstant)
	require.NoError(testInstance, targetError)

	outcome := reconciler.Reconcile(context.Background(), target)
	require.True(testInstance, outcome.Succeeded(), outcome.Log)
	return outcome.Log
}

func TestReconcilerAgainstRealGitRepositories(testInstance *testing.T) {
	sandbox := newGitSandbox(testInstance)
	reconciler := sandbox.reconciler(testInstance)
	repositoryPath := filepath.Join(sandbox.workspace, "widgets")

	cloneLog := reconcileSuccessfully(testInstance, reconciler, "main")
	require.Contains(testInstance, cloneLog, "Directory widgets does not exist; cloning it.")
	_, statError := os.Stat(filepath.Join(repositoryPath, integrationReadmeNameConstant))
	require.NoError(testInstance, statError)

	refreshLog := reconcileSuccessfully(testInstance, reconciler, "main")
	require.Contains(testInstance, refreshLog, "Fetching commits from origin...")
	require.NotContains(testInstance, refreshLog, "Switching branches")
	require.NotContains(testInstance, refreshLog, "Changing origin URL")

	sandbox.git(testInstance, repositoryPath, "remote", "set-url", "origin", "git@github.com:acme/legacy.git")
	remoteLog := reconcileSuccessfully(testInstance, reconciler, "main")
	require.Contains(testInstance, remoteLog, "Changing origin URL from git@github.com:acme/legacy.git to git@github.com:acme/widgets.git")
	require.Equal(testInstance, "git@github.com:acme/widgets.git", sandbox.git(testInstance, repositoryPath, "config", "--get", "remote.origin.url"))

	switchLog := reconcileSuccessfully(testInstance, reconciler, "release")
	require.Contains(testInstance, switchLog, "Switching branches from main to release")
	require.Equal(testInstance, "release", sandbox.git(testInstance, repositoryPath, "symbolic-ref", "--short", "HEAD"))
	require.Equal(testInstance, "origin/release", sandbox.git(testInstance, repositoryPath, "rev-parse", "--abbrev-ref", "release@{upstream}"))

	returnLog := reconcileSuccessfully(testInstance, reconciler, "main")
	require.Contains(testInstance, returnLog, "Switching branches from release to main")
	require.Equal(testInstance, "main", sandbox.git(testInstance, repositoryPath, "symbolic-ref", "--short", "HEAD"))
}
