package execshell

import (
	"fmt"
	"strings"
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	describedFailureTemplateConstant        = "Failed to %s (exit code %d%s)"
	describedExecutionFailureTemplate       = "Unable to %s: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	gitFetchAllRemotesLabelConstant         = "all remotes"
	optionPrefixConstant                    = "-"
)

const (
	gitCloneSubcommandNameConstant       = "clone"
	gitConfigSubcommandNameConstant      = "config"
	gitRemoteSubcommandNameConstant      = "remote"
	gitFetchSubcommandNameConstant       = "fetch"
	gitSymbolicRefSubcommandNameConstant = "symbolic-ref"
	gitBranchSubcommandNameConstant      = "branch"
	gitCheckoutSubcommandNameConstant    = "checkout"
	gitPullSubcommandNameConstant        = "pull"
	gitSubmoduleSubcommandNameConstant   = "submodule"
	gitBranchFlagConstant                = "--branch"
	gitTagsFlagConstant                  = "--tags"
	gitTrackFlagConstant                 = "--track"
	gitResetBranchFlagConstant           = "-B"
	gitRemoveSubcommandNameConstant      = "rm"
	gitRemoveLongSubcommandNameConstant  = "remove"
	gitAddSubcommandNameConstant         = "add"
	gitGetFlagConstant                   = "--get"
)

// commandDescription holds the three verb forms used to describe a command lifecycle.
type commandDescription struct {
	progressive string
	past        string
	infinitive  string
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	if description, described := formatter.describe(command); described {
		return description.progressive
	}
	return fmt.Sprintf(genericStartTemplateConstant, formatter.formatCommandLabel(command))
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	if description, described := formatter.describe(command); described {
		return description.past
	}
	return fmt.Sprintf(genericSuccessTemplateConstant, formatter.formatCommandLabel(command))
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	standardErrorSuffix := formatter.formatStandardErrorSuffix(result.StandardError)
	if description, described := formatter.describe(command); described {
		return fmt.Sprintf(describedFailureTemplateConstant, description.infinitive, result.ExitCode, standardErrorSuffix)
	}
	return fmt.Sprintf(genericFailureTemplateConstant, formatter.formatCommandLabel(command), result.ExitCode, standardErrorSuffix)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	if description, described := formatter.describe(command); described {
		return fmt.Sprintf(describedExecutionFailureTemplate, description.infinitive, failureMessage)
	}
	return fmt.Sprintf(genericExecutionFailureTemplateConstant, formatter.formatCommandLabel(command), failureMessage)
}

func (formatter CommandMessageFormatter) describe(command ShellCommand) (commandDescription, bool) {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return commandDescription{}, false
	}

	arguments := command.Details.Arguments
	location := formatter.workingDirectoryLabel(command.Details.WorkingDirectory)

	switch arguments[0] {
	case gitCloneSubcommandNameConstant:
		positional := positionalArguments(arguments[1:], gitBranchFlagConstant)
		if len(positional) == 0 {
			return commandDescription{}, false
		}
		source := positional[0]
		branch := flagValue(arguments, gitBranchFlagConstant)
		if len(branch) == 0 {
			return describeAll("Cloning %s into %s", "Cloned %s into %s", "clone %s into %s", source, location), true
		}
		return describeAll("Cloning %s at %s into %s", "Cloned %s at %s into %s", "clone %s at %s into %s", source, branch, location), true
	case gitConfigSubcommandNameConstant:
		configurationKey := flagValue(arguments, gitGetFlagConstant)
		if len(configurationKey) == 0 {
			return commandDescription{}, false
		}
		return describeAll("Reading %s in %s", "Read %s in %s", "read %s in %s", configurationKey, location), true
	case gitRemoteSubcommandNameConstant:
		if len(arguments) < 3 {
			return commandDescription{}, false
		}
		switch arguments[1] {
		case gitRemoveSubcommandNameConstant, gitRemoveLongSubcommandNameConstant:
			return describeAll("Removing remote %s in %s", "Removed remote %s in %s", "remove remote %s in %s", arguments[2], location), true
		case gitAddSubcommandNameConstant:
			if len(arguments) < 4 {
				return commandDescription{}, false
			}
			return describeAll("Adding remote %s (%s) in %s", "Added remote %s (%s) in %s", "add remote %s (%s) in %s", arguments[2], arguments[3], location), true
		}
		return commandDescription{}, false
	case gitFetchSubcommandNameConstant:
		if containsArgument(arguments, gitTagsFlagConstant) {
			return describeAll("Fetching tags in %s", "Fetched tags in %s", "fetch tags in %s", location), true
		}
		positional := positionalArguments(arguments[1:])
		if len(positional) == 0 {
			return describeAll("Fetching from %s in %s", "Fetched from %s in %s", "fetch from %s in %s", gitFetchAllRemotesLabelConstant, location), true
		}
		if len(positional) == 1 {
			return describeAll("Fetching from %s in %s", "Fetched from %s in %s", "fetch from %s in %s", positional[0], location), true
		}
		references := strings.Join(positional[1:], commandArgumentsJoinSeparatorConstant)
		return describeAll("Fetching %s from %s in %s", "Fetched %s from %s in %s", "fetch %s from %s in %s", references, positional[0], location), true
	case gitSymbolicRefSubcommandNameConstant:
		return describeAll("Identifying current branch in %s", "Identified current branch in %s", "identify current branch in %s", location), true
	case gitBranchSubcommandNameConstant:
		positional := positionalArguments(arguments[1:])
		if len(positional) == 0 {
			return describeAll("Listing local branches in %s", "Listed local branches in %s", "list local branches in %s", location), true
		}
		return describeAll("Looking up local branch %s in %s", "Looked up local branch %s in %s", "look up local branch %s in %s", positional[0], location), true
	case gitCheckoutSubcommandNameConstant:
		trackedReference := flagValue(arguments, gitTrackFlagConstant)
		createdBranch := flagValue(arguments, gitResetBranchFlagConstant)
		if len(createdBranch) > 0 && len(trackedReference) > 0 {
			return describeAll("Creating branch %s tracking %s in %s", "Created branch %s tracking %s in %s", "create branch %s tracking %s in %s", createdBranch, trackedReference, location), true
		}
		positional := positionalArguments(arguments[1:])
		if len(positional) == 0 {
			return commandDescription{}, false
		}
		return describeAll("Switching %s to branch %s", "%s now on branch %s", "switch %s to branch %s", location, positional[0]), true
	case gitPullSubcommandNameConstant:
		positional := positionalArguments(arguments[1:])
		if len(positional) < 2 {
			return describeAll("Pulling upstream changes in %s", "Pulled upstream changes in %s", "pull upstream changes in %s", location), true
		}
		return describeAll("Pulling %s from %s in %s", "Pulled %s from %s in %s", "pull %s from %s in %s", positional[1], positional[0], location), true
	case gitSubmoduleSubcommandNameConstant:
		return describeAll("Updating submodules in %s", "Updated submodules in %s", "update submodules in %s", location), true
	default:
		return commandDescription{}, false
	}
}

func describeAll(progressiveTemplate string, pastTemplate string, infinitiveTemplate string, arguments ...any) commandDescription {
	return commandDescription{
		progressive: fmt.Sprintf(progressiveTemplate, arguments...),
		past:        fmt.Sprintf(pastTemplate, arguments...),
		infinitive:  fmt.Sprintf(infinitiveTemplate, arguments...),
	}
}

// positionalArguments drops option arguments along with the values of any valued flags.
func positionalArguments(arguments []string, valuedFlags ...string) []string {
	positional := make([]string, 0, len(arguments))
	for argumentIndex := 0; argumentIndex < len(arguments); argumentIndex++ {
		argument := arguments[argumentIndex]
		if strings.HasPrefix(argument, optionPrefixConstant) {
			if containsArgument(valuedFlags, argument) {
				argumentIndex++
			}
			continue
		}
		positional = append(positional, argument)
	}
	return positional
}

func flagValue(arguments []string, flagName string) string {
	for argumentIndex := 0; argumentIndex < len(arguments)-1; argumentIndex++ {
		if arguments[argumentIndex] == flagName {
			return arguments[argumentIndex+1]
		}
	}
	return emptyStringConstant
}

func containsArgument(arguments []string, candidate string) bool {
	for _, argument := range arguments {
		if argument == candidate {
			return true
		}
	}
	return false
}

func (formatter CommandMessageFormatter) workingDirectoryLabel(workingDirectory string) string {
	trimmedWorkingDirectory := strings.TrimSpace(workingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	commandLabel := strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return commandLabel
	}
	return commandLabel + fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}
