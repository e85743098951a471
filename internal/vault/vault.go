package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/mantohq/manto/internal/store"
)

func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// Vault provides AES-256-GCM encryption/decryption with a passphrase-derived key.
type Vault struct {
	key [32]byte
}

// New creates a Vault by deriving an AES-256 key from the passphrase via Argon2id.
// The salt is deterministic (SHA-256 of passphrase), so the same passphrase always
// produces the same key across restarts.
func New(passphrase string) *Vault {
	salt := sha256.Sum256([]byte(passphrase))
	key := deriveKey([]byte(passphrase), salt[:16])

	v := &Vault{}
	copy(v.key[:], key)
	return v
}

// Encrypt encrypts plaintext using AES-256-GCM with a random nonce.
func (v *Vault) Encrypt(plaintext []byte) (ciphertext, nonce []byte, err error) {
	gcm, err := v.gcm()
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM with the provided nonce.
func (v *Vault) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return plaintext, nil
}

func (v *Vault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Keeper pairs a Vault with the secrets table, so callers deal in names and
// plaintext strings only.
type Keeper struct {
	vault *Vault
	store *store.Store
}

func NewKeeper(v *Vault, s *store.Store) *Keeper {
	return &Keeper{vault: v, store: s}
}

// Put encrypts and stores a named secret, replacing any previous value.
func (k *Keeper) Put(name, plaintext string) error {
	ciphertext, nonce, err := k.vault.Encrypt([]byte(plaintext))
	if err != nil {
		return err
	}
	return k.store.SaveSecret(&store.Secret{
		ID:    uuid.NewString(),
		Name:  name,
		Value: ciphertext,
		Nonce: nonce,
	})
}

// Get decrypts a named secret. Returns an error when the name is unknown.
func (k *Keeper) Get(name string) (string, error) {
	sec, err := k.store.GetSecret(name)
	if err != nil {
		return "", err
	}
	if sec == nil {
		return "", fmt.Errorf("secret not found: %s", name)
	}
	plaintext, err := k.vault.Decrypt(sec.Value, sec.Nonce)
	if err != nil {
		return "", fmt.Errorf("decrypt secret %s: %w", name, err)
	}
	return string(plaintext), nil
}

// Resolve expands "secret:<name>" references found in config values.
// Anything else passes through unchanged.
func (k *Keeper) Resolve(value string) (string, error) {
	name, ok := strings.CutPrefix(value, "secret:")
	if !ok {
		return value, nil
	}
	return k.Get(name)
}

func (k *Keeper) List() ([]string, error) {
	return k.store.ListSecretNames()
}

func (k *Keeper) Delete(name string) error {
	return k.store.DeleteSecret(name)
}
