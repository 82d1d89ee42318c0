package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// EncryptedFileStore implements CredentialStore using an AES-GCM
// encrypted file. It is the fallback when no system keychain is
// available (headless machines, CI).
type EncryptedFileStore struct {
	filepath   string
	passphrase string
	mu         sync.RWMutex
}

type encryptedFile struct {
	Salt      string `json:"salt"`
	Encrypted string `json:"encrypted"`
}

// NewEncryptedFileStore creates an encrypted file store at the given
// path. The passphrase comes from SLACKHARVEST_PASSPHRASE when set,
// otherwise a machine-local default is derived from hostname and user.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	passphrase := os.Getenv("SLACKHARVEST_PASSPHRASE")
	if passphrase == "" {
		hostname, _ := os.Hostname()
		passphrase = fmt.Sprintf("slackharvest-%s-%s", hostname, os.Getenv("USER"))
	}

	return &EncryptedFileStore{
		filepath:   path,
		passphrase: passphrase,
	}, nil
}

// Store saves credentials to the encrypted file
func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Workspace == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.loadAccounts()
	if err != nil {
		accounts = make(map[string]Account)
	}
	accounts[account.Workspace] = *account

	return e.saveAccounts(accounts)
}

// Retrieve gets credentials from the encrypted file
func (e *EncryptedFileStore) Retrieve(workspace string) (*Account, error) {
	if workspace == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, err := e.loadAccounts()
	if err != nil {
		return nil, ErrCredentialsNotFound
	}

	account, ok := accounts[workspace]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns all accounts from the encrypted file
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, err := e.loadAccounts()
	if err != nil {
		return []*Account{}, nil
	}

	result := make([]*Account, 0, len(accounts))
	for workspace := range accounts {
		account := accounts[workspace]
		result = append(result, &account)
	}
	return result, nil
}

// Delete removes credentials from the encrypted file
func (e *EncryptedFileStore) Delete(workspace string) error {
	if workspace == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.loadAccounts()
	if err != nil {
		return ErrCredentialsNotFound
	}

	if _, ok := accounts[workspace]; !ok {
		return ErrCredentialsNotFound
	}
	delete(accounts, workspace)

	return e.saveAccounts(accounts)
}

// Exists checks if credentials exist in the encrypted file
func (e *EncryptedFileStore) Exists(workspace string) bool {
	account, err := e.Retrieve(workspace)
	return err == nil && account != nil
}

func (e *EncryptedFileStore) loadAccounts() (map[string]Account, error) {
	data, err := os.ReadFile(e.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Account), nil
		}
		return nil, err
	}

	var file encryptedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("corrupt credential file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("corrupt credential salt: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("corrupt credential payload: %w", err)
	}

	plaintext, err := e.decrypt(ciphertext, salt)
	if err != nil {
		return nil, err
	}

	var accounts map[string]Account
	if err := json.Unmarshal(plaintext, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}
	return accounts, nil
}

func (e *EncryptedFileStore) saveAccounts(accounts map[string]Account) error {
	plaintext, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	ciphertext, err := e.encrypt(plaintext, salt)
	if err != nil {
		return err
	}

	file := encryptedFile{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
	}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode credential file: %w", err)
	}

	return os.WriteFile(e.filepath, data, 0600)
}

func (e *EncryptedFileStore) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
}

func (e *EncryptedFileStore) encrypt(plaintext, salt []byte) ([]byte, error) {
	block, err := aes.NewCipher(e.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *EncryptedFileStore) decrypt(ciphertext, salt []byte) ([]byte, error) {
	block, err := aes.NewCipher(e.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, payload := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, payload, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	return plaintext, nil
}
