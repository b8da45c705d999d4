package githubauth_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/temirov/gitfleet/internal/githubauth"
)

func TestKeyringStoreLifecycle(testInstance *testing.T) {
	keyring.MockInit()
	store := githubauth.NewKeyringStore("gitfleet-test", "github-token")

	emptyToken, emptyError := store.Load()
	require.NoError(testInstance, emptyError)
	require.Empty(testInstance, emptyToken)

	require.NoError(testInstance, store.Save("stored-token"))
	storedToken, loadError := store.Load()
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "stored-token", storedToken)

	require.NoError(testInstance, store.Delete())
	require.NoError(testInstance, store.Delete())
	deletedToken, deletedError := store.Load()
	require.NoError(testInstance, deletedError)
	require.Empty(testInstance, deletedToken)
}
