package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/temirov/gitfleet/internal/execshell"
)

const (
	gitExecutorMissingMessageConstant     = "git executor not configured"
	emptyArgumentsMessageConstant         = "no git arguments supplied"
	commandErrorTemplateConstant          = "git %s failed: %s"
	commandErrorWithoutDiagnosticTemplate = "git %s failed with exit code %d"
	homeEnvironmentNameConstant           = "HOME"
	sshAuthSocketEnvironmentNameConstant  = "SSH_AUTH_SOCK"
	terminalPromptEnvironmentNameConstant = "GIT_TERMINAL_PROMPT"
	terminalPromptDisabledValueConstant   = "0"
	argumentParseFailureTemplateConstant  = "unable to parse arguments: %v"
)

// ErrGitExecutorNotConfigured indicates the git executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// GitExecutor exposes the subset of shell execution used to run git.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// CommandError reports a git invocation that could not be spawned or exited non-zero.
type CommandError struct {
	Arguments        string
	WorkingDirectory string
	ExitCode         int
	Diagnostic       string
	Cause            error
}

// Error renders the arguments together with git's diagnostic text.
func (commandError CommandError) Error() string {
	if len(commandError.Diagnostic) == 0 {
		return fmt.Sprintf(commandErrorWithoutDiagnosticTemplate, commandError.Arguments, commandError.ExitCode)
	}
	return fmt.Sprintf(commandErrorTemplateConstant, commandError.Arguments, commandError.Diagnostic)
}

// Unwrap exposes the underlying execution error.
func (commandError CommandError) Unwrap() error {
	return commandError.Cause
}

// AmbientEnvironment holds the process-derived values every git invocation needs for
// credential resolution. It is resolved once and never mutated afterwards.
type AmbientEnvironment struct {
	HomeDirectory string
	SSHAuthSocket string
}

// ResolveAmbientEnvironment reads the home directory and SSH agent socket from the process.
func ResolveAmbientEnvironment(homeDirectoryProvider func() (string, error), lookupEnvironment func(string) (string, bool)) (AmbientEnvironment, error) {
	homeDirectory, homeError := homeDirectoryProvider()
	if homeError != nil {
		return AmbientEnvironment{}, homeError
	}
	socketPath, _ := lookupEnvironment(sshAuthSocketEnvironmentNameConstant)
	return AmbientEnvironment{HomeDirectory: homeDirectory, SSHAuthSocket: strings.TrimSpace(socketPath)}, nil
}

// Overrides renders the environment variables merged into each git process.
func (environment AmbientEnvironment) Overrides() map[string]string {
	overrides := map[string]string{
		terminalPromptEnvironmentNameConstant: terminalPromptDisabledValueConstant,
	}
	if len(environment.HomeDirectory) > 0 {
		overrides[homeEnvironmentNameConstant] = environment.HomeDirectory
	}
	if len(environment.SSHAuthSocket) > 0 {
		overrides[sshAuthSocketEnvironmentNameConstant] = environment.SSHAuthSocket
	}
	return overrides
}

// Runner executes git argument strings.
type Runner struct {
	executor GitExecutor
}

// NewRunner constructs a Runner on top of a git executor.
func NewRunner(executor GitExecutor) (*Runner, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &Runner{executor: executor}, nil
}

// Run splits argumentString with shell quoting rules, runs git once in workingDirectory
// (empty selects the process directory) with environmentOverrides merged over the
// process environment, and returns standard output without surrounding whitespace.
func (runner *Runner) Run(executionContext context.Context, argumentString string, workingDirectory string, environmentOverrides map[string]string) (string, error) {
	arguments, splitError := shlex.Split(argumentString)
	if splitError != nil {
		return "", CommandError{
			Arguments:        argumentString,
			WorkingDirectory: workingDirectory,
			Diagnostic:       fmt.Sprintf(argumentParseFailureTemplateConstant, splitError),
			Cause:            splitError,
		}
	}
	if len(arguments) == 0 {
		return "", CommandError{Arguments: argumentString, WorkingDirectory: workingDirectory, Diagnostic: emptyArgumentsMessageConstant}
	}

	environment := make(map[string]string, len(environmentOverrides))
	for key, value := range environmentOverrides {
		environment[key] = value
	}

	result, executionError := runner.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     workingDirectory,
		EnvironmentVariables: environment,
	})
	if executionError != nil {
		return "", newCommandError(strings.Join(arguments, " "), workingDirectory, executionError)
	}

	return strings.TrimSpace(result.StandardOutput), nil
}

func newCommandError(arguments string, workingDirectory string, executionError error) CommandError {
	commandError := CommandError{Arguments: arguments, WorkingDirectory: workingDirectory, Cause: executionError}

	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		commandError.ExitCode = failedError.Result.ExitCode
		commandError.Diagnostic = failedError.Diagnostic()
		return commandError
	}

	var executionFailure execshell.CommandExecutionError
	if errors.As(executionError, &executionFailure) && executionFailure.Cause != nil {
		commandError.Diagnostic = executionFailure.Cause.Error()
		return commandError
	}

	commandError.Diagnostic = executionError.Error()
	return commandError
}
