package execshell

// CommandEventObserver is notified around every command the ShellExecutor runs. Calls may
// arrive concurrently from different reconciliations.
type CommandEventObserver interface {
	CommandStarted(command ShellCommand)
	// CommandCompleted receives the result of a process that ran, whatever its exit code.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed receives errors raised before the process could report an exit code.
	CommandExecutionFailed(command ShellCommand, failure error)
}
