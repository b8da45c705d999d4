package fleetconfig

import "fmt"

const (
	configurationErrorTemplateConstant    = "%s: %v"
	fetchFailureMessageConstant           = "couldn't get configuration file"
	missingSubmodulesMessageConstant      = "configuration file is missing 'submodules' configuration"
	invalidSubmoduleTemplateConstant      = "configuration file has an invalid submodule entry %q"
	unparsableDocumentMessageConstant     = "configuration file could not be parsed"
	conflictingSubmodulesMessageConstant  = "configuration file has conflicting submodule entries"
	noApplicableSourceTemplateConstant    = "no configuration source accepts %q"
	projectSettingsFailureMessageConstant = "couldn't update project settings"
)

// ConfigurationError reports a fleet document that could not be acquired or is incomplete.
// It is fatal: no repository is reconciled once it occurs.
type ConfigurationError struct {
	Message string
	Cause   error
}

// Error renders the message followed by the cause when present.
func (configurationError ConfigurationError) Error() string {
	if configurationError.Cause == nil {
		return configurationError.Message
	}
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Message, configurationError.Cause)
}

// Unwrap exposes the underlying failure.
func (configurationError ConfigurationError) Unwrap() error {
	return configurationError.Cause
}
