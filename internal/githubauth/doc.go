// Package githubauth resolves the GitHub token used to download fleet configuration.
package githubauth
