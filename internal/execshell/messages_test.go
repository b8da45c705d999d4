package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testRepositoryPathConstant = "/workspace/widgets"
)

func TestBuildStartedMessageForFetchIncludesRemoteAndReferences(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"fetch", "--prune", "origin", "feature"},
			WorkingDirectory: "/workspace/repo",
		},
	}

	message := formatter.BuildStartedMessage(command)

	require.Equal(t, "Fetching feature from origin in /workspace/repo", message)
}

func TestBuildStartedMessageForFetchWithoutRemoteUsesAllRemotesLabel(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"fetch", "--prune"},
			WorkingDirectory: "/workspace/repo",
		},
	}

	message := formatter.BuildStartedMessage(command)

	require.Equal(t, "Fetching from all remotes in /workspace/repo", message)
}

func TestDescribedGitCommandMessages(t *testing.T) {
	testCases := []struct {
		name                     string
		arguments                []string
		workingDirectory         string
		expectedStartedMessage   string
		expectedSucceededMessage string
	}{
		{
			name:                     "clone_with_branch",
			arguments:                []string{"clone", "--recursive", "--branch", "main", "git@github.com:acme/widgets.git"},
			workingDirectory:         "/workspace",
			expectedStartedMessage:   "Cloning git@github.com:acme/widgets.git at main into /workspace",
			expectedSucceededMessage: "Cloned git@github.com:acme/widgets.git at main into /workspace",
		},
		{
			name:                     "read_origin_url",
			arguments:                []string{"config", "--get", "remote.origin.url"},
			workingDirectory:         testRepositoryPathConstant,
			expectedStartedMessage:   "Reading remote.origin.url in " + testRepositoryPathConstant,
			expectedSucceededMessage: "Read remote.origin.url in " + testRepositoryPathConstant,
		},
		{
			name:                     "remove_remote",
			arguments:                []string{"remote", "rm", "origin"},
			workingDirectory:         testRepositoryPathConstant,
			expectedStartedMessage:   "Removing remote origin in " + testRepositoryPathConstant,
			expectedSucceededMessage: "Removed remote origin in " + testRepositoryPathConstant,
		},
		{
			name:                     "add_remote",
			arguments:                []string{"remote", "add", "origin", "git@github.com:acme/widgets.git"},
			workingDirectory:         testRepositoryPathConstant,
			expectedStartedMessage:   "Adding remote origin (git@github.com:acme/widgets.git) in " + testRepositoryPathConstant,
			expectedSucceededMessage: "Added remote origin (git@github.com:acme/widgets.git) in " + testRepositoryPathConstant,
		},
		{
			name:                     "fetch_tags",
			arguments:                []string{"fetch", "--tags"},
			workingDirectory:         testRepositoryPathConstant,
			expectedStartedMessage:   "Fetching tags in " + testRepositoryPathConstant,
			expectedSucceededMessage: "Fetched tags in " + testRepositoryPathConstant,
		},
		{
			name:                     "tracking_checkout",
			arguments:                []string{"checkout", "-B", "release", "--track", "origin/release"},
			workingDirectory:         testRepositoryPathConstant,
			expectedStartedMessage:   "Creating branch release tracking origin/release in " + testRepositoryPathConstant,
			expectedSucceededMessage: "Created branch release tracking origin/release in " + testRepositoryPathConstant,
		},
		{
			name:                     "plain_checkout",
			arguments:                []string{"checkout", "release"},
			workingDirectory:         testRepositoryPathConstant,
			expectedStartedMessage:   "Switching " + testRepositoryPathConstant + " to branch release",
			expectedSucceededMessage: testRepositoryPathConstant + " now on branch release",
		},
		{
			name:                     "rebase_pull",
			arguments:                []string{"pull", "--rebase", "origin", "main"},
			workingDirectory:         testRepositoryPathConstant,
			expectedStartedMessage:   "Pulling main from origin in " + testRepositoryPathConstant,
			expectedSucceededMessage: "Pulled main from origin in " + testRepositoryPathConstant,
		},
		{
			name:                     "submodule_update_without_directory",
			arguments:                []string{"submodule", "update", "--init", "--recursive"},
			expectedStartedMessage:   "Updating submodules in current directory",
			expectedSucceededMessage: "Updated submodules in current directory",
		},
	}

	formatter := CommandMessageFormatter{}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			command := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: testCase.arguments, WorkingDirectory: testCase.workingDirectory}}
			require.Equal(t, testCase.expectedStartedMessage, formatter.BuildStartedMessage(command))
			require.Equal(t, testCase.expectedSucceededMessage, formatter.BuildSuccessMessage(command))
		})
	}
}

func TestFailureMessagesIncludeExitCodeAndStandardError(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"fetch", "origin"}, WorkingDirectory: testRepositoryPathConstant}}

	failureMessage := formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 128, StandardError: "fatal: unable to access\n"})
	require.Equal(t, "Failed to fetch from origin in "+testRepositoryPathConstant+" (exit code 128: fatal: unable to access)", failureMessage)

	executionFailureMessage := formatter.BuildExecutionFailureMessage(command, errors.New("executable file not found"))
	require.Equal(t, "Unable to fetch from origin in "+testRepositoryPathConstant+": executable file not found", executionFailureMessage)
}

func TestUndescribedCommandsUseGenericMessages(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"gc", "--auto"}, WorkingDirectory: testRepositoryPathConstant}}

	require.Equal(t, "Running git gc --auto (in "+testRepositoryPathConstant+")", formatter.BuildStartedMessage(command))
	require.Equal(t, "Completed git gc --auto (in "+testRepositoryPathConstant+")", formatter.BuildSuccessMessage(command))
	require.Equal(t, "git gc --auto (in "+testRepositoryPathConstant+") failed with exit code 2", formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 2}))
}
