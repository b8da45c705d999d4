package fleet

import (
	"fmt"
)

const (
	reconciliationFailureTemplateConstant = "%s: %v"
	fleetErrorTemplateConstant            = "%d of %d repositories failed to synchronize"
)

// ReconciliationFailure carries the error that stopped one repository's reconciliation
// together with the log accumulated up to that point.
type ReconciliationFailure struct {
	Identifier string
	Log        string
	Cause      error
}

// Error names the repository and the triggering error.
func (failure ReconciliationFailure) Error() string {
	return fmt.Sprintf(reconciliationFailureTemplateConstant, failure.Identifier, failure.Cause)
}

// Unwrap exposes the step error.
func (failure ReconciliationFailure) Unwrap() error {
	return failure.Cause
}

// ReconciliationOutcome is the single result of reconciling one target.
type ReconciliationOutcome struct {
	Target  RepositoryTarget
	Log     string
	Failure *ReconciliationFailure
}

// Succeeded reports whether the reconciliation reached the done state.
func (outcome ReconciliationOutcome) Succeeded() bool {
	return outcome.Failure == nil
}

// FleetResult aggregates the outcomes of a fleet run in target order.
type FleetResult struct {
	Outcomes []ReconciliationOutcome
}

// Succeeded reports whether every repository reconciled successfully.
func (result FleetResult) Succeeded() bool {
	for _, outcome := range result.Outcomes {
		if !outcome.Succeeded() {
			return false
		}
	}
	return true
}

// Failures returns the failures in target order.
func (result FleetResult) Failures() []ReconciliationFailure {
	var failures []ReconciliationFailure
	for _, outcome := range result.Outcomes {
		if outcome.Failure != nil {
			failures = append(failures, *outcome.Failure)
		}
	}
	return failures
}

// Err returns a FleetError when at least one repository failed.
func (result FleetResult) Err() error {
	failures := result.Failures()
	if len(failures) == 0 {
		return nil
	}
	return FleetError{Failures: failures, RepositoryCount: len(result.Outcomes)}
}

// FleetError reports that one or more repositories failed to reconcile.
type FleetError struct {
	Failures        []ReconciliationFailure
	RepositoryCount int
}

// Error summarizes the failure count.
func (fleetError FleetError) Error() string {
	return fmt.Sprintf(fleetErrorTemplateConstant, len(fleetError.Failures), fleetError.RepositoryCount)
}
