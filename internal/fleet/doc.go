// Package fleet reconciles local working copies against a declared set of
// repositories. A Reconciler drives one repository through an explicit state
// machine (existence, remote, fetch, branch, pull) and an Orchestrator runs one
// reconciliation per repository concurrently, isolating failures and
// aggregating the outcomes into a FleetResult.
package fleet
