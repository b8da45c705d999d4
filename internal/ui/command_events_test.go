package ui_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/gitfleet/internal/execshell"
	"github.com/temirov/gitfleet/internal/ui"
)

const (
	testRepositoryDirectoryConstant  = "/workspace/widgets"
	testRepositoryNameConstant       = "widgets"
	testSpawnFailureConstant         = "executable file not found"
	testRejectedFetchConstant        = "fatal: unable to access remote"
	testRepositoryFieldNameConstant  = "repository"
	testFetchFailureExitCodeConstant = 128
)

func TestConsoleCommandEventLoggerLevelsAndRepositoryField(testInstance *testing.T) {
	pullCommand := execshell.ShellCommand{
		Name: execshell.CommandGit,
		Details: execshell.CommandDetails{
			Arguments:        []string{"pull", "--rebase", "origin", "main"},
			WorkingDirectory: testRepositoryDirectoryConstant,
		},
	}

	testCases := []struct {
		name            string
		invoke          func(eventLogger *ui.ConsoleCommandEventLogger)
		expectedLevel   zapcore.Level
		expectedContent string
	}{
		{
			name:          "started_is_debug",
			invoke:        func(eventLogger *ui.ConsoleCommandEventLogger) { eventLogger.CommandStarted(pullCommand) },
			expectedLevel: zapcore.DebugLevel,
		},
		{
			name: "success_is_info",
			invoke: func(eventLogger *ui.ConsoleCommandEventLogger) {
				eventLogger.CommandCompleted(pullCommand, execshell.ExecutionResult{})
			},
			expectedLevel: zapcore.InfoLevel,
		},
		{
			name: "non_zero_exit_is_warn",
			invoke: func(eventLogger *ui.ConsoleCommandEventLogger) {
				eventLogger.CommandCompleted(pullCommand, execshell.ExecutionResult{ExitCode: testFetchFailureExitCodeConstant, StandardError: testRejectedFetchConstant})
			},
			expectedLevel:   zapcore.WarnLevel,
			expectedContent: testRejectedFetchConstant,
		},
		{
			name: "spawn_failure_is_error",
			invoke: func(eventLogger *ui.ConsoleCommandEventLogger) {
				eventLogger.CommandExecutionFailed(pullCommand, errors.New(testSpawnFailureConstant))
			},
			expectedLevel:   zapcore.ErrorLevel,
			expectedContent: testSpawnFailureConstant,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			observerCore, observedLogs := observer.New(zapcore.DebugLevel)
			testCase.invoke(ui.NewConsoleCommandEventLogger(zap.New(observerCore)))

			entries := observedLogs.All()
			require.Len(subtest, entries, 1)
			require.Equal(subtest, testCase.expectedLevel, entries[0].Level)
			require.NotEmpty(subtest, entries[0].Message)
			require.Contains(subtest, entries[0].Message, testCase.expectedContent)
			require.Equal(subtest, testRepositoryNameConstant, entries[0].ContextMap()[testRepositoryFieldNameConstant])
		})
	}
}

func TestConsoleCommandEventLoggerToleratesNilReceiver(testInstance *testing.T) {
	var eventLogger *ui.ConsoleCommandEventLogger
	require.NotPanics(testInstance, func() {
		eventLogger.CommandStarted(execshell.ShellCommand{Name: execshell.CommandGit})
		eventLogger.CommandCompleted(execshell.ShellCommand{Name: execshell.CommandGit}, execshell.ExecutionResult{ExitCode: 1})
	})
}
