package fleet_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/gitfleet/internal/fleet"
	"github.com/temirov/gitfleet/internal/gitrepo"
)

const barrierTimeoutConstant = 5 * time.Second

type reconcilerFunc func(executionContext context.Context, target fleet.RepositoryTarget) fleet.ReconciliationOutcome

func (function reconcilerFunc) Reconcile(executionContext context.Context, target fleet.RepositoryTarget) fleet.ReconciliationOutcome {
	return function(executionContext, target)
}

func newTestOrchestrator(testInstance *testing.T, reconciler fleet.TargetReconciler, output *bytes.Buffer, concurrencyLimit int) *fleet.Orchestrator {
	testInstance.Helper()
	orchestrator, creationError := fleet.NewOrchestrator(zap.NewNop(), reconciler, output, concurrencyLimit)
	require.NoError(testInstance, creationError)
	return orchestrator
}

func TestNewOrchestratorValidatesDependencies(testInstance *testing.T) {
	reconciler := reconcilerFunc(func(context.Context, fleet.RepositoryTarget) fleet.ReconciliationOutcome {
		return fleet.ReconciliationOutcome{}
	})

	_, loggerError := fleet.NewOrchestrator(nil, reconciler, &bytes.Buffer{}, 0)
	require.ErrorIs(testInstance, loggerError, fleet.ErrOrchestratorLoggerNotConfigured)

	_, reconcilerError := fleet.NewOrchestrator(zap.NewNop(), nil, &bytes.Buffer{}, 0)
	require.ErrorIs(testInstance, reconcilerError, fleet.ErrOrchestratorReconcilerNotConfigured)

	_, outputError := fleet.NewOrchestrator(zap.NewNop(), reconciler, nil, 0)
	require.ErrorIs(testInstance, outputError, fleet.ErrOrchestratorOutputNotConfigured)
}

func TestOrchestratorClonesMissingRepositoryEndToEnd(testInstance *testing.T) {
	workspace := newWorkspace(testInstance)
	runner := &scriptedGitRunner{}
	reconciler := newTestReconciler(testInstance, zap.NewNop(), runner, workspace)

	targets, buildError := fleet.BuildTargets(map[string]string{testIdentifierConstant: testBranchConstant}, testHostConstant)
	require.NoError(testInstance, buildError)

	var output bytes.Buffer
	result := newTestOrchestrator(testInstance, reconciler, &output, 0).Run(context.Background(), targets)

	require.True(testInstance, result.Succeeded())
	require.NoError(testInstance, result.Err())
	require.Equal(testInstance, []string{cloneArgumentsConstant}, runner.arguments())
	require.Equal(testInstance, "Processing acme/widgets\n  Directory widgets does not exist; cloning it.\n", output.String())
}

func TestOrchestratorIsolatesFailuresEndToEnd(testInstance *testing.T) {
	workspace := newWorkspace(testInstance, "widgets", "gadgets")
	responses := upToDateResponses()
	responses["widgets:"+fetchOriginArgumentsConstant] = scriptedResponse{
		err: gitrepo.CommandError{Arguments: fetchOriginArgumentsConstant, ExitCode: 128, Diagnostic: fetchFailureDiagnosticConstant},
	}
	responses["gadgets:"+remoteQueryArgumentsConstant] = scriptedResponse{output: "git@github.com:acme/gadgets.git"}
	runner := &scriptedGitRunner{responses: responses}
	reconciler := newTestReconciler(testInstance, zap.NewNop(), runner, workspace)

	targets, buildError := fleet.BuildTargets(map[string]string{
		"acme/widgets": testBranchConstant,
		"acme/gadgets": testBranchConstant,
	}, testHostConstant)
	require.NoError(testInstance, buildError)

	var output bytes.Buffer
	result := newTestOrchestrator(testInstance, reconciler, &output, 0).Run(context.Background(), targets)

	require.False(testInstance, result.Succeeded())
	require.Len(testInstance, result.Outcomes, 2)
	require.Equal(testInstance, "acme/gadgets", result.Outcomes[0].Target.Identifier)
	require.True(testInstance, result.Outcomes[0].Succeeded())
	require.Equal(testInstance, "acme/widgets", result.Outcomes[1].Target.Identifier)
	require.False(testInstance, result.Outcomes[1].Succeeded())

	var fleetError fleet.FleetError
	require.ErrorAs(testInstance, result.Err(), &fleetError)
	require.Len(testInstance, fleetError.Failures, 1)
	require.Equal(testInstance, "acme/widgets", fleetError.Failures[0].Identifier)
	require.Equal(testInstance, "1 of 2 repositories failed to synchronize", fleetError.Error())

	var commandError gitrepo.CommandError
	require.True(testInstance, errors.As(fleetError.Failures[0], &commandError))
	require.Equal(testInstance, fetchFailureDiagnosticConstant, commandError.Diagnostic)

	require.Contains(testInstance, output.String(), "Processing acme/gadgets\n  Fetching commits from origin...\n  Already up to date.\n")
	require.Contains(testInstance, output.String(), "Processing acme/widgets\n  Fetching commits from origin...\n  git fetch origin failed: fatal: unable to access remote\n")
}

func TestOrchestratorRunsTargetsConcurrently(testInstance *testing.T) {
	targets, buildError := fleet.BuildTargets(map[string]string{
		"acme/one":   "main",
		"acme/two":   "main",
		"acme/three": "main",
	}, testHostConstant)
	require.NoError(testInstance, buildError)

	var startedGroup sync.WaitGroup
	startedGroup.Add(len(targets))
	allStarted := make(chan struct{})
	go func() {
		startedGroup.Wait()
		close(allStarted)
	}()

	reconciler := reconcilerFunc(func(_ context.Context, target fleet.RepositoryTarget) fleet.ReconciliationOutcome {
		startedGroup.Done()
		select {
		case <-allStarted:
			return fleet.ReconciliationOutcome{Target: target, Log: "Processing " + target.Identifier}
		case <-time.After(barrierTimeoutConstant):
			failure := &fleet.ReconciliationFailure{Identifier: target.Identifier, Cause: errors.New("targets did not run concurrently")}
			return fleet.ReconciliationOutcome{Target: target, Failure: failure}
		}
	})

	var output bytes.Buffer
	result := newTestOrchestrator(testInstance, reconciler, &output, 0).Run(context.Background(), targets)
	require.True(testInstance, result.Succeeded())
	require.Len(testInstance, result.Outcomes, len(targets))
}

func TestOrchestratorHonorsConcurrencyLimit(testInstance *testing.T) {
	targets, buildError := fleet.BuildTargets(map[string]string{
		"acme/one":   "main",
		"acme/two":   "main",
		"acme/three": "main",
		"acme/four":  "main",
		"acme/five":  "main",
	}, testHostConstant)
	require.NoError(testInstance, buildError)

	var inFlight atomic.Int32
	var maximumInFlight atomic.Int32
	reconciler := reconcilerFunc(func(_ context.Context, target fleet.RepositoryTarget) fleet.ReconciliationOutcome {
		current := inFlight.Add(1)
		for {
			observed := maximumInFlight.Load()
			if current <= observed || maximumInFlight.CompareAndSwap(observed, current) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return fleet.ReconciliationOutcome{Target: target, Log: target.Identifier}
	})

	var output bytes.Buffer
	result := newTestOrchestrator(testInstance, reconciler, &output, 2).Run(context.Background(), targets)
	require.True(testInstance, result.Succeeded())
	require.LessOrEqual(testInstance, maximumInFlight.Load(), int32(2))
	for _, target := range targets {
		require.Contains(testInstance, output.String(), target.Identifier+"\n")
	}
}

func TestOrchestratorRejectedTaskDoesNotCancelSiblings(testInstance *testing.T) {
	targets, buildError := fleet.BuildTargets(map[string]string{
		"acme/gadgets": testBranchConstant,
		"acme/tools":   testBranchConstant,
		"acme/widgets": testBranchConstant,
	}, testHostConstant)
	require.NoError(testInstance, buildError)

	stepError := errors.New(fetchFailureDiagnosticConstant)
	var reconciledCount atomic.Int32
	reconciler := reconcilerFunc(func(_ context.Context, target fleet.RepositoryTarget) fleet.ReconciliationOutcome {
		reconciledCount.Add(1)
		outcome := fleet.ReconciliationOutcome{Target: target, Log: "Processing " + target.Identifier}
		if target.Identifier == "acme/gadgets" {
			outcome.Failure = &fleet.ReconciliationFailure{Identifier: target.Identifier, Log: outcome.Log, Cause: stepError}
		}
		return outcome
	})

	observedCore, observedLogs := observer.New(zapcore.InfoLevel)
	orchestrator, creationError := fleet.NewOrchestrator(zap.New(observedCore), reconciler, &bytes.Buffer{}, 1)
	require.NoError(testInstance, creationError)

	result := orchestrator.Run(context.Background(), targets)

	require.Equal(testInstance, int32(3), reconciledCount.Load())
	require.Len(testInstance, result.Outcomes, 3)
	require.False(testInstance, result.Outcomes[0].Succeeded())
	require.True(testInstance, result.Outcomes[1].Succeeded())
	require.True(testInstance, result.Outcomes[2].Succeeded())

	finishedEntries := observedLogs.FilterMessage("fleet synchronization finished").All()
	require.Len(testInstance, finishedEntries, 1)
	require.Equal(testInstance, "acme/gadgets: "+fetchFailureDiagnosticConstant, finishedEntries[0].ContextMap()["first_failure"])
	require.Equal(testInstance, int64(1), finishedEntries[0].ContextMap()["failed"])
}
