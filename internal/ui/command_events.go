package ui

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/gitfleet/internal/execshell"
)

const (
	repositoryFieldConstant = "repository"
)

// ConsoleCommandEventLogger writes one human-readable line per git invocation. Reconciliations
// run concurrently, so every line names the repository directory it belongs to. Starts are
// logged at debug level; completions at info, non-zero exits at warn and spawn failures at error.
type ConsoleCommandEventLogger struct {
	logger    *zap.Logger
	formatter execshell.CommandMessageFormatter
}

// NewConsoleCommandEventLogger constructs the observer. A nil logger discards events.
func NewConsoleCommandEventLogger(logger *zap.Logger) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleCommandEventLogger{logger: logger, formatter: execshell.CommandMessageFormatter{}}
}

func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Debug(eventLogger.formatter.BuildStartedMessage(command), repositoryField(command))
}

func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	if result.ExitCode != 0 {
		eventLogger.logger.Warn(eventLogger.formatter.BuildFailureMessage(command, result), repositoryField(command))
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildSuccessMessage(command), repositoryField(command))
}

func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.formatter.BuildExecutionFailureMessage(command, failure), repositoryField(command))
}

// repositoryField labels clones, which run in the workspace, with the workspace directory name.
func repositoryField(command execshell.ShellCommand) zap.Field {
	return zap.String(repositoryFieldConstant, filepath.Base(command.Details.WorkingDirectory))
}
