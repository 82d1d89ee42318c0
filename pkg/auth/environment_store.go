package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment
// variables. Read-only, kept for parity with the original config.json /
// env based setup.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from SLACK_TOKEN / SLACK_COOKIE
func (e *EnvironmentStore) Retrieve(workspace string) (*Account, error) {
	token := os.Getenv("SLACK_TOKEN")
	cookie := os.Getenv("SLACK_COOKIE")

	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	if workspace == "" {
		workspace = "default"
	}

	return &Account{
		Workspace:    workspace,
		Token:        token,
		Cookie:       cookie,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(workspace string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(workspace string) bool {
	return os.Getenv("SLACK_TOKEN") != ""
}
