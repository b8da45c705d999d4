package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const (
	environmentAssignmentSeparatorConstant = "="
)

// OSCommandRunner executes commands using the operating system facilities.
type OSCommandRunner struct {
	baseEnvironment func() []string
}

// NewOSCommandRunner constructs a runner backed by os/exec that inherits the process environment.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{baseEnvironment: os.Environ}
}

// Run spawns exactly one process for the command. A non-zero exit is reported through
// ExecutionResult.ExitCode; only spawn and wait failures are returned as errors.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executable := exec.CommandContext(executionContext, string(command.Name), append([]string{}, command.Details.Arguments...)...)

	if len(command.Details.WorkingDirectory) > 0 {
		executable.Dir = command.Details.WorkingDirectory
	}

	if len(command.Details.EnvironmentVariables) > 0 {
		baseEnvironment := os.Environ
		if runner != nil && runner.baseEnvironment != nil {
			baseEnvironment = runner.baseEnvironment
		}
		executable.Env = MergeEnvironment(baseEnvironment(), command.Details.EnvironmentVariables)
	}

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	executable.Stdout = &standardOutputBuffer
	executable.Stderr = &standardErrorBuffer

	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	runError := executable.Run()
	result := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}
	if runError == nil {
		return result, nil
	}

	var exitError *exec.ExitError
	if errors.As(runError, &exitError) {
		result.ExitCode = exitError.ExitCode()
		return result, nil
	}
	return ExecutionResult{}, runError
}

// MergeEnvironment overlays overrides onto a KEY=VALUE environment list. Overridden keys
// replace their base entries; new keys are appended in sorted order.
func MergeEnvironment(base []string, overrides map[string]string) []string {
	merged := make([]string, 0, len(base)+len(overrides))
	applied := make(map[string]bool, len(overrides))

	for _, assignment := range base {
		key, _, _ := strings.Cut(assignment, environmentAssignmentSeparatorConstant)
		overrideValue, overridden := overrides[key]
		if !overridden {
			merged = append(merged, assignment)
			continue
		}
		if applied[key] {
			continue
		}
		merged = append(merged, key+environmentAssignmentSeparatorConstant+overrideValue)
		applied[key] = true
	}

	remainingKeys := make([]string, 0, len(overrides))
	for key := range overrides {
		if !applied[key] {
			remainingKeys = append(remainingKeys, key)
		}
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		merged = append(merged, key+environmentAssignmentSeparatorConstant+overrides[key])
	}

	return merged
}
