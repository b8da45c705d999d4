package fleet

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/gitfleet/internal/gitrepo"
)

const (
	processingMessageTemplateConstant      = "Processing %s"
	cloningMessageTemplateConstant         = "Directory %s does not exist; cloning it."
	changingRemoteMessageTemplateConstant  = "Changing origin URL from %s to %s"
	fetchingMessageConstant                = "Fetching commits from origin..."
	switchingBranchMessageTemplateConstant = "Switching branches from %s to %s"
	cloneArgumentsTemplateConstant         = "clone --recursive --branch %s %s"
	removeOriginArgumentsConstant          = "remote rm origin"
	addOriginArgumentsTemplateConstant     = "remote add origin %s"
	fetchOriginArgumentsConstant           = "fetch origin"
	fetchTagsArgumentsConstant             = "fetch --tags"
	checkoutArgumentsTemplateConstant      = "checkout %s"
	trackingCheckoutArgumentsTemplate      = "checkout -B %s --track origin/%s"
	pullArgumentsTemplateConstant          = "pull --rebase origin %s"
	submoduleUpdateArgumentsConstant       = "submodule update --init --recursive"
	stepIndentLevelConstant                = 2
	nestedStepIndentLevelConstant          = 4
	loggerMissingMessageConstant           = "reconciler logger not configured"
	runnerMissingMessageConstant           = "reconciler git runner not configured"
	inspectorMissingMessageConstant        = "reconciler repository inspector not configured"
	reconcilerStateLogMessageConstant      = "reconciliation state"
	reconcilerFinishedLogMessageConstant   = "reconciliation finished"
	repositoryLogFieldConstant             = "repository"
	stateLogFieldConstant                  = "state"
	succeededLogFieldConstant              = "succeeded"
	unexpectedStateTemplateConstant        = "unexpected reconciliation state %d"
)

// ErrReconcilerLoggerNotConfigured indicates the reconciler was constructed without a logger.
var ErrReconcilerLoggerNotConfigured = errors.New(loggerMissingMessageConstant)

// ErrReconcilerRunnerNotConfigured indicates the reconciler was constructed without a git runner.
var ErrReconcilerRunnerNotConfigured = errors.New(runnerMissingMessageConstant)

// ErrReconcilerInspectorNotConfigured indicates the reconciler was constructed without an inspector.
var ErrReconcilerInspectorNotConfigured = errors.New(inspectorMissingMessageConstant)

// RepositoryInspector answers the read-only questions that drive reconciliation.
type RepositoryInspector interface {
	Exists(repositoryPath string) (bool, error)
	CurrentRemoteURL(executionContext context.Context, repositoryPath string) (string, error)
	CurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	LocalBranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error)
}

type reconciliationState int

const (
	stateExistenceCheck reconciliationState = iota
	stateClone
	stateRemoteCheck
	stateFetch
	stateBranchCheck
	stateBranchRecovery
	statePull
	stateDone
	stateFailed
)

var reconciliationStateNames = map[reconciliationState]string{
	stateExistenceCheck: "existence_check",
	stateClone:          "clone",
	stateRemoteCheck:    "remote_check",
	stateFetch:          "fetch",
	stateBranchCheck:    "branch_check",
	stateBranchRecovery: "branch_recovery",
	statePull:           "pull",
	stateDone:           "done",
	stateFailed:         "failed",
}

func (state reconciliationState) String() string {
	return reconciliationStateNames[state]
}

// reconciliationTask is the state owned by one reconciliation.
type reconciliationTask struct {
	target              RepositoryTarget
	repositoryPath      string
	log                 *ReconciliationLog
	branchLookupFailure error
}

// Reconciler drives a single repository to its target remote and branch.
type Reconciler struct {
	logger             *zap.Logger
	runner             gitrepo.GitCommandRunner
	inspector          RepositoryInspector
	environment        map[string]string
	workspaceDirectory string
}

// NewReconciler constructs a Reconciler that keeps repositories under workspaceDirectory.
func NewReconciler(logger *zap.Logger, runner gitrepo.GitCommandRunner, inspector RepositoryInspector, environment gitrepo.AmbientEnvironment, workspaceDirectory string) (*Reconciler, error) {
	if logger == nil {
		return nil, ErrReconcilerLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrReconcilerRunnerNotConfigured
	}
	if inspector == nil {
		return nil, ErrReconcilerInspectorNotConfigured
	}
	return &Reconciler{
		logger:             logger,
		runner:             runner,
		inspector:          inspector,
		environment:        environment.Overrides(),
		workspaceDirectory: workspaceDirectory,
	}, nil
}

// Reconcile brings target in line with its declared remote and branch. Every step
// error is captured in the returned outcome; Reconcile never fails on its own.
func (reconciler *Reconciler) Reconcile(executionContext context.Context, target RepositoryTarget) ReconciliationOutcome {
	task := &reconciliationTask{
		target:         target,
		repositoryPath: filepath.Join(reconciler.workspaceDirectory, target.Name),
		log:            &ReconciliationLog{},
	}
	task.log.Append(fmt.Sprintf(processingMessageTemplateConstant, target.Identifier), 0)

	state := stateExistenceCheck
	var stepError error
	for state != stateDone && state != stateFailed {
		reconciler.logger.Debug(reconcilerStateLogMessageConstant,
			zap.String(repositoryLogFieldConstant, target.Identifier),
			zap.Stringer(stateLogFieldConstant, state),
		)
		var nextState reconciliationState
		nextState, stepError = reconciler.transition(executionContext, task, state)
		if stepError != nil {
			state = stateFailed
			break
		}
		state = nextState
	}

	outcome := ReconciliationOutcome{Target: target}
	if state == stateFailed {
		task.log.Append(stepError.Error(), stepIndentLevelConstant)
		outcome.Failure = &ReconciliationFailure{Identifier: target.Identifier, Log: task.log.Render(), Cause: stepError}
	}
	outcome.Log = task.log.Render()

	reconciler.logger.Debug(reconcilerFinishedLogMessageConstant,
		zap.String(repositoryLogFieldConstant, target.Identifier),
		zap.Bool(succeededLogFieldConstant, outcome.Succeeded()),
	)
	return outcome
}

func (reconciler *Reconciler) transition(executionContext context.Context, task *reconciliationTask, state reconciliationState) (reconciliationState, error) {
	switch state {
	case stateExistenceCheck:
		return reconciler.checkExistence(task)
	case stateClone:
		return reconciler.clone(executionContext, task)
	case stateRemoteCheck:
		return reconciler.checkRemote(executionContext, task)
	case stateFetch:
		return reconciler.fetch(executionContext, task)
	case stateBranchCheck:
		return reconciler.checkBranch(executionContext, task)
	case stateBranchRecovery:
		return reconciler.recoverBranch(executionContext, task)
	case statePull:
		return reconciler.pull(executionContext, task)
	default:
		return stateFailed, fmt.Errorf(unexpectedStateTemplateConstant, state)
	}
}

func (reconciler *Reconciler) checkExistence(task *reconciliationTask) (reconciliationState, error) {
	exists, existsError := reconciler.inspector.Exists(task.repositoryPath)
	if existsError != nil {
		return stateFailed, existsError
	}
	if !exists {
		return stateClone, nil
	}
	return stateRemoteCheck, nil
}

// clone satisfies the remote, the branch, and nested submodules in one action.
func (reconciler *Reconciler) clone(executionContext context.Context, task *reconciliationTask) (reconciliationState, error) {
	task.log.Append(fmt.Sprintf(cloningMessageTemplateConstant, task.target.Name), stepIndentLevelConstant)
	cloneArguments := fmt.Sprintf(cloneArgumentsTemplateConstant, task.target.Branch, task.target.RemoteURL)
	if _, cloneError := reconciler.run(executionContext, cloneArguments, reconciler.workspaceDirectory); cloneError != nil {
		return stateFailed, cloneError
	}
	return stateDone, nil
}

// checkRemote replaces origin rather than editing it in place.
func (reconciler *Reconciler) checkRemote(executionContext context.Context, task *reconciliationTask) (reconciliationState, error) {
	currentRemoteURL, remoteError := reconciler.inspector.CurrentRemoteURL(executionContext, task.repositoryPath)
	if remoteError != nil {
		return stateFailed, remoteError
	}
	if currentRemoteURL == task.target.RemoteURL {
		return stateFetch, nil
	}

	task.log.Append(fmt.Sprintf(changingRemoteMessageTemplateConstant, currentRemoteURL, task.target.RemoteURL), stepIndentLevelConstant)
	if _, removeError := reconciler.run(executionContext, removeOriginArgumentsConstant, task.repositoryPath); removeError != nil {
		return stateFailed, removeError
	}
	if _, addError := reconciler.run(executionContext, fmt.Sprintf(addOriginArgumentsTemplateConstant, task.target.RemoteURL), task.repositoryPath); addError != nil {
		return stateFailed, addError
	}
	return stateFetch, nil
}

func (reconciler *Reconciler) fetch(executionContext context.Context, task *reconciliationTask) (reconciliationState, error) {
	task.log.Append(fetchingMessageConstant, stepIndentLevelConstant)
	if _, fetchError := reconciler.run(executionContext, fetchOriginArgumentsConstant, task.repositoryPath); fetchError != nil {
		return stateFailed, fetchError
	}
	return stateBranchCheck, nil
}

func (reconciler *Reconciler) checkBranch(executionContext context.Context, task *reconciliationTask) (reconciliationState, error) {
	currentBranch, branchError := reconciler.inspector.CurrentBranch(executionContext, task.repositoryPath)
	if branchError != nil {
		return stateFailed, branchError
	}
	if currentBranch == task.target.Branch {
		return statePull, nil
	}

	task.log.Append(fmt.Sprintf(switchingBranchMessageTemplateConstant, currentBranch, task.target.Branch), stepIndentLevelConstant)
	_, lookupError := reconciler.inspector.LocalBranchExists(executionContext, task.repositoryPath, task.target.Branch)
	if lookupError != nil {
		var missingBranchError gitrepo.MissingBranchError
		if errors.As(lookupError, &missingBranchError) {
			task.branchLookupFailure = lookupError
			return stateBranchRecovery, nil
		}
		return stateFailed, lookupError
	}

	if _, checkoutError := reconciler.run(executionContext, fmt.Sprintf(checkoutArgumentsTemplateConstant, task.target.Branch), task.repositoryPath); checkoutError != nil {
		return stateFailed, checkoutError
	}
	return statePull, nil
}

// recoverBranch fetches tags and creates a tracking branch. Its failure is recorded in the
// log and reconciliation continues with whatever branch is checked out.
func (reconciler *Reconciler) recoverBranch(executionContext context.Context, task *reconciliationTask) (reconciliationState, error) {
	if _, tagsError := reconciler.run(executionContext, fetchTagsArgumentsConstant, task.repositoryPath); tagsError != nil {
		task.log.Append(task.branchLookupFailure.Error(), nestedStepIndentLevelConstant)
		return statePull, nil
	}
	trackingArguments := fmt.Sprintf(trackingCheckoutArgumentsTemplate, task.target.Branch, task.target.Branch)
	if _, checkoutError := reconciler.run(executionContext, trackingArguments, task.repositoryPath); checkoutError != nil {
		task.log.Append(task.branchLookupFailure.Error(), nestedStepIndentLevelConstant)
	}
	return statePull, nil
}

// pull rebases upstream commits and then initializes nested submodules; the pull output is
// logged once both complete.
func (reconciler *Reconciler) pull(executionContext context.Context, task *reconciliationTask) (reconciliationState, error) {
	pullOutput, pullError := reconciler.run(executionContext, fmt.Sprintf(pullArgumentsTemplateConstant, task.target.Branch), task.repositoryPath)
	if pullError != nil {
		return stateFailed, pullError
	}
	if _, updateError := reconciler.run(executionContext, submoduleUpdateArgumentsConstant, task.repositoryPath); updateError != nil {
		return stateFailed, updateError
	}
	if len(pullOutput) > 0 {
		task.log.Append(pullOutput, stepIndentLevelConstant)
	}
	return stateDone, nil
}

func (reconciler *Reconciler) run(executionContext context.Context, argumentString string, workingDirectory string) (string, error) {
	return reconciler.runner.Run(executionContext, argumentString, workingDirectory, reconciler.environment)
}
