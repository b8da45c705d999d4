package githubauth

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	tokenRequiredMessageConstant       = "GitHub Personal Access Token is required"
	storeReadFailureMessageConstant    = "unable to read stored GitHub token"
	credentialErrorTemplateConstant    = "%s: %v"
	tokenPromptGuidanceConstant        = "A GitHub Personal Access Token with repository read access is needed to download configuration.\nCreate one at https://github.com/settings/tokens and paste it here: "
	tokenSourceLogMessageConstant      = "resolved GitHub token"
	tokenSourceLogFieldConstant        = "source"
	tokenStoreFailedLogMessageConstant = "unable to store GitHub token"
	tokenSourceEnvironmentConstant     = "environment"
	tokenSourceKeychainConstant        = "keychain"
	tokenSourcePromptConstant          = "prompt"
)

// CredentialError reports that no GitHub token could be obtained.
type CredentialError struct {
	Message string
	Cause   error
}

// Error describes the missing credential.
func (credentialError CredentialError) Error() string {
	if credentialError.Cause == nil {
		return credentialError.Message
	}
	return fmt.Sprintf(credentialErrorTemplateConstant, credentialError.Message, credentialError.Cause)
}

// Unwrap exposes the underlying failure.
func (credentialError CredentialError) Unwrap() error {
	return credentialError.Cause
}

// TokenPrompter interactively asks for a token.
type TokenPrompter interface {
	Prompt(guidance string) (string, error)
}

// Resolver obtains the GitHub token from the environment, then the token store, then an
// interactive prompt whose answer is saved to the store. The token is resolved on first
// use and reused afterwards.
type Resolver struct {
	logger            *zap.Logger
	lookupEnvironment EnvironmentLookup
	store             TokenStore
	prompter          TokenPrompter

	mutex         sync.Mutex
	resolvedToken string
}

// NewResolver constructs a Resolver. A nil lookupEnvironment reads the process environment.
func NewResolver(logger *zap.Logger, lookupEnvironment EnvironmentLookup, store TokenStore, prompter TokenPrompter) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger, lookupEnvironment: lookupEnvironment, store: store, prompter: prompter}
}

// Token returns the GitHub token, resolving it on the first call.
func (resolver *Resolver) Token(_ context.Context) (string, error) {
	resolver.mutex.Lock()
	defer resolver.mutex.Unlock()

	if len(resolver.resolvedToken) > 0 {
		return resolver.resolvedToken, nil
	}

	if token, found := ResolveEnvironmentToken(resolver.lookupEnvironment); found {
		return resolver.remember(token, tokenSourceEnvironmentConstant), nil
	}

	if resolver.store != nil {
		storedToken, loadError := resolver.store.Load()
		if loadError != nil {
			resolver.logger.Warn(storeReadFailureMessageConstant, zap.Error(loadError))
		} else if len(storedToken) > 0 {
			return resolver.remember(storedToken, tokenSourceKeychainConstant), nil
		}
	}

	if resolver.prompter == nil {
		return "", CredentialError{Message: tokenRequiredMessageConstant}
	}
	enteredToken, promptError := resolver.prompter.Prompt(tokenPromptGuidanceConstant)
	if promptError != nil {
		return "", CredentialError{Message: tokenRequiredMessageConstant, Cause: promptError}
	}
	if len(enteredToken) == 0 {
		return "", CredentialError{Message: tokenRequiredMessageConstant}
	}
	if resolver.store != nil {
		if saveError := resolver.store.Save(enteredToken); saveError != nil {
			resolver.logger.Warn(tokenStoreFailedLogMessageConstant, zap.Error(saveError))
		}
	}
	return resolver.remember(enteredToken, tokenSourcePromptConstant), nil
}

// Forget discards the resolved token and removes it from the store.
func (resolver *Resolver) Forget() error {
	resolver.mutex.Lock()
	defer resolver.mutex.Unlock()

	resolver.resolvedToken = ""
	if resolver.store == nil {
		return nil
	}
	return resolver.store.Delete()
}

func (resolver *Resolver) remember(token string, source string) string {
	resolver.resolvedToken = token
	resolver.logger.Debug(tokenSourceLogMessageConstant, zap.String(tokenSourceLogFieldConstant, source))
	return token
}
