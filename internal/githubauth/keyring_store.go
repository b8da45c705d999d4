package githubauth

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// TokenStore persists a token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

// KeyringStore keeps the token in the operating system keychain.
type KeyringStore struct {
	service string
	account string
}

// NewKeyringStore constructs a store addressing service/account in the keychain.
func NewKeyringStore(service string, account string) KeyringStore {
	return KeyringStore{service: service, account: account}
}

// Load returns the stored token, or an empty string when none is stored.
func (store KeyringStore) Load() (string, error) {
	token, getError := keyring.Get(store.service, store.account)
	if errors.Is(getError, keyring.ErrNotFound) {
		return "", nil
	}
	return token, getError
}

// Save stores token.
func (store KeyringStore) Save(token string) error {
	return keyring.Set(store.service, store.account, token)
}

// Delete removes the stored token. Deleting an absent token succeeds.
func (store KeyringStore) Delete() error {
	deleteError := keyring.Delete(store.service, store.account)
	if errors.Is(deleteError, keyring.ErrNotFound) {
		return nil
	}
	return deleteError
}
