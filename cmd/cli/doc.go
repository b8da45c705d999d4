// Package cli builds the gitfleet root command. It loads application settings,
// constructs the zap logger, resolves the fleet document for the requested
// project, and hands the resulting repository targets to the fleet orchestrator.
package cli
