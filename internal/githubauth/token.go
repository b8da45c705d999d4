package githubauth

import (
	"os"
	"strings"
)

// Environment variable names consulted for a GitHub token, in preference order.
const (
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var tokenPreference = []string{
	EnvGitHubToken,
	EnvGitHubCLIToken,
	EnvGitHubAPIToken,
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// ResolveEnvironmentToken returns the first non-empty GitHub token exposed through
// lookupEnvironment, which defaults to the process environment.
func ResolveEnvironmentToken(lookupEnvironment EnvironmentLookup) (string, bool) {
	if lookupEnvironment == nil {
		lookupEnvironment = os.LookupEnv
	}
	for _, key := range tokenPreference {
		value, exists := lookupEnvironment(key)
		if !exists {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) > 0 {
			return value, true
		}
	}
	return "", false
}
