package githubauth_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitfleet/internal/githubauth"
)

type memoryTokenStore struct {
	token       string
	loadError   error
	saveCalls   int
	deleteCalls int
}

func (store *memoryTokenStore) Load() (string, error) {
	return store.token, store.loadError
}

func (store *memoryTokenStore) Save(token string) error {
	store.saveCalls++
	store.token = token
	return nil
}

func (store *memoryTokenStore) Delete() error {
	store.deleteCalls++
	store.token = ""
	return nil
}

type scriptedPrompter struct {
	response    string
	promptError error
	promptCalls int
}

func (prompter *scriptedPrompter) Prompt(string) (string, error) {
	prompter.promptCalls++
	return prompter.response, prompter.promptError
}

func emptyEnvironment(string) (string, bool) {
	return "", false
}

func TestResolverTokenSources(testInstance *testing.T) {
	testCases := []struct {
		name              string
		environment       githubauth.EnvironmentLookup
		store             *memoryTokenStore
		prompter          *scriptedPrompter
		expectedToken     string
		expectedPrompts   int
		expectedSaves     int
		expectCredentials bool
	}{
		{
			name: "environment_first",
			environment: func(key string) (string, bool) {
				if key == githubauth.EnvGitHubToken {
					return "environment-token", true
				}
				return "", false
			},
			store:         &memoryTokenStore{token: "stored-token"},
			prompter:      &scriptedPrompter{response: "prompted-token"},
			expectedToken: "environment-token",
		},
		{
			name:          "keychain_second",
			environment:   emptyEnvironment,
			store:         &memoryTokenStore{token: "stored-token"},
			prompter:      &scriptedPrompter{response: "prompted-token"},
			expectedToken: "stored-token",
		},
		{
			name:            "prompt_last_and_saved",
			environment:     emptyEnvironment,
			store:           &memoryTokenStore{},
			prompter:        &scriptedPrompter{response: "prompted-token"},
			expectedToken:   "prompted-token",
			expectedPrompts: 1,
			expectedSaves:   1,
		},
		{
			name:            "unreadable_keychain_falls_through",
			environment:     emptyEnvironment,
			store:           &memoryTokenStore{loadError: errors.New("keychain locked")},
			prompter:        &scriptedPrompter{response: "prompted-token"},
			expectedToken:   "prompted-token",
			expectedPrompts: 1,
			expectedSaves:   1,
		},
		{
			name:              "empty_prompt_fails",
			environment:       emptyEnvironment,
			store:             &memoryTokenStore{},
			prompter:          &scriptedPrompter{},
			expectedPrompts:   1,
			expectCredentials: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			resolver := githubauth.NewResolver(nil, testCase.environment, testCase.store, testCase.prompter)

			token, tokenError := resolver.Token(context.Background())
			if testCase.expectCredentials {
				var credentialError githubauth.CredentialError
				require.ErrorAs(subTest, tokenError, &credentialError)
				require.True(subTest, strings.HasPrefix(credentialError.Error(), "GitHub Personal Access Token is required"))
			} else {
				require.NoError(subTest, tokenError)
				require.Equal(subTest, testCase.expectedToken, token)
			}
			require.Equal(subTest, testCase.expectedPrompts, testCase.prompter.promptCalls)
			require.Equal(subTest, testCase.expectedSaves, testCase.store.saveCalls)
		})
	}
}

func TestResolverCachesUntilForgotten(testInstance *testing.T) {
	store := &memoryTokenStore{}
	prompter := &scriptedPrompter{response: "prompted-token"}
	resolver := githubauth.NewResolver(nil, emptyEnvironment, store, prompter)

	for attempt := 0; attempt < 2; attempt++ {
		token, tokenError := resolver.Token(context.Background())
		require.NoError(testInstance, tokenError)
		require.Equal(testInstance, "prompted-token", token)
	}
	require.Equal(testInstance, 1, prompter.promptCalls)

	require.NoError(testInstance, resolver.Forget())
	require.Equal(testInstance, 1, store.deleteCalls)
	require.Empty(testInstance, store.token)

	prompter.response = "replacement-token"
	token, tokenError := resolver.Token(context.Background())
	require.NoError(testInstance, tokenError)
	require.Equal(testInstance, "replacement-token", token)
	require.Equal(testInstance, 2, prompter.promptCalls)
}

func TestResolverWithoutPrompter(testInstance *testing.T) {
	resolver := githubauth.NewResolver(nil, emptyEnvironment, nil, nil)
	_, tokenError := resolver.Token(context.Background())

	var credentialError githubauth.CredentialError
	require.ErrorAs(testInstance, tokenError, &credentialError)
	require.NoError(testInstance, resolver.Forget())
}
