package fleet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	orchestratorLoggerMissingMessageConstant     = "orchestrator logger not configured"
	orchestratorReconcilerMissingMessageConstant = "orchestrator reconciler not configured"
	orchestratorOutputMissingMessageConstant     = "orchestrator output not configured"
	fleetStartedLogMessageConstant               = "fleet synchronization started"
	fleetFinishedLogMessageConstant              = "fleet synchronization finished"
	outputWriteFailedLogMessageConstant          = "unable to write repository log"
	repositoryCountLogFieldConstant              = "repositories"
	failedCountLogFieldConstant                  = "failed"
	concurrencyLogFieldConstant                  = "concurrency"
	firstFailureLogFieldConstant                 = "first_failure"
	renderedOutcomeTemplateConstant              = "%s\n"
)

// ErrOrchestratorLoggerNotConfigured indicates the orchestrator was constructed without a logger.
var ErrOrchestratorLoggerNotConfigured = errors.New(orchestratorLoggerMissingMessageConstant)

// ErrOrchestratorReconcilerNotConfigured indicates the orchestrator was constructed without a reconciler.
var ErrOrchestratorReconcilerNotConfigured = errors.New(orchestratorReconcilerMissingMessageConstant)

// ErrOrchestratorOutputNotConfigured indicates the orchestrator was constructed without an output writer.
var ErrOrchestratorOutputNotConfigured = errors.New(orchestratorOutputMissingMessageConstant)

// TargetReconciler reconciles a single repository target.
type TargetReconciler interface {
	Reconcile(executionContext context.Context, target RepositoryTarget) ReconciliationOutcome
}

// Orchestrator fans reconciliation out across a fleet and waits for every target.
type Orchestrator struct {
	logger           *zap.Logger
	reconciler       TargetReconciler
	output           io.Writer
	outputMutex      sync.Mutex
	concurrencyLimit int
}

// NewOrchestrator constructs an Orchestrator. A concurrencyLimit of zero or less runs every
// target at once; a positive value caps the number of reconciliations in flight.
func NewOrchestrator(logger *zap.Logger, reconciler TargetReconciler, output io.Writer, concurrencyLimit int) (*Orchestrator, error) {
	if logger == nil {
		return nil, ErrOrchestratorLoggerNotConfigured
	}
	if reconciler == nil {
		return nil, ErrOrchestratorReconcilerNotConfigured
	}
	if output == nil {
		return nil, ErrOrchestratorOutputNotConfigured
	}
	return &Orchestrator{logger: logger, reconciler: reconciler, output: output, concurrencyLimit: concurrencyLimit}, nil
}

// Run reconciles every target concurrently. Each outcome's log is written to the output
// as soon as its reconciliation finishes, so logs appear in completion order; the
// returned FleetResult lists outcomes in target order. A failed reconciliation rejects its
// task with the ReconciliationFailure, but the group carries no context, so it never
// cancels or delays its siblings and there is no cancellation once targets are launched.
func (orchestrator *Orchestrator) Run(executionContext context.Context, targets []RepositoryTarget) FleetResult {
	orchestrator.logger.Info(fleetStartedLogMessageConstant,
		zap.Int(repositoryCountLogFieldConstant, len(targets)),
		zap.Int(concurrencyLogFieldConstant, orchestrator.concurrencyLimit),
	)

	outcomes := make([]ReconciliationOutcome, len(targets))
	var taskGroup errgroup.Group
	if orchestrator.concurrencyLimit > 0 {
		taskGroup.SetLimit(orchestrator.concurrencyLimit)
	}

	for targetIndex := range targets {
		target := targets[targetIndex]
		outcomeIndex := targetIndex
		taskGroup.Go(func() error {
			outcome := orchestrator.reconciler.Reconcile(executionContext, target)
			outcomes[outcomeIndex] = outcome
			orchestrator.emit(outcome)
			if outcome.Failure != nil {
				return *outcome.Failure
			}
			return nil
		})
	}
	firstFailure := taskGroup.Wait()

	result := FleetResult{Outcomes: outcomes}
	orchestrator.logger.Info(fleetFinishedLogMessageConstant,
		zap.Int(repositoryCountLogFieldConstant, len(targets)),
		zap.Int(failedCountLogFieldConstant, len(result.Failures())),
		zap.NamedError(firstFailureLogFieldConstant, firstFailure),
	)
	return result
}

func (orchestrator *Orchestrator) emit(outcome ReconciliationOutcome) {
	orchestrator.outputMutex.Lock()
	defer orchestrator.outputMutex.Unlock()

	if _, writeError := fmt.Fprintf(orchestrator.output, renderedOutcomeTemplateConstant, outcome.Log); writeError != nil {
		orchestrator.logger.Warn(outputWriteFailedLogMessageConstant,
			zap.String(repositoryLogFieldConstant, outcome.Target.Identifier),
			zap.Error(writeError),
		)
	}
}
