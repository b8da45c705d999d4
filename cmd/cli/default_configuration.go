package cli

import _ "embed"

//go:embed default_config.yaml
var embeddedDefaultConfigurationContent []byte

// EmbeddedDefaultConfiguration returns a copy of the built-in settings layered beneath
// configuration files, environment variables and flags.
func EmbeddedDefaultConfiguration() []byte {
	return append([]byte(nil), embeddedDefaultConfigurationContent...)
}
