// Package keystore is the local encrypted fallback backend: a single
// AES-256-GCM encrypted JSON blob of service/account/secret entries, keyed
// by a deterministic machine-bound factor tuple.
//
// The machine-derived key is best-effort protection against casual file
// theft, not a substitute for a hardware-backed keystore: anyone who can run
// code as this user on this machine can re-derive it. The real source of
// truth for a lost entry is the external password manager or the user.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/hkdf"

	"github.com/Pranav-Karra-3301/tuck/internal/metrics"
)

const (
	ivSize  = 12
	tagSize = 16

	// keyVersion is part of the key derivation input. Bumping it
	// invalidates every existing keystore file.
	keyVersion = "tuck-keystore-v1"

	dataVersion = 1
)

// data is the plaintext shape inside the encrypted blob.
type data struct {
	Version int                          `json:"version"`
	Entries map[string]map[string]string `json:"entries"` // service -> account -> secret
}

// Keystore stores secrets in one encrypted file. The read-modify-write
// cycle is not safe against concurrent writers from separate processes;
// that is an accepted limitation of a single-user, single-machine tool.
type Keystore struct {
	path string
	key  []byte
	log  zerolog.Logger
}

// New builds a keystore at path with the machine-derived key.
func New(path string, log zerolog.Logger) (*Keystore, error) {
	key, err := deriveKey()
	if err != nil {
		return nil, fmt.Errorf("deriving keystore key: %w", err)
	}
	return &Keystore{path: path, key: key, log: log}, nil
}

// deriveKey hashes the machine factor tuple through HKDF-SHA256 into a
// fixed-size symmetric key. Deterministic per (host, user, home, platform).
func deriveKey() ([]byte, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	username := "unknown-user"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	secret := []byte(hostname + "\x00" + username + "\x00" + home + "\x00" + runtime.GOOS)
	kdf := hkdf.New(sha256.New, secret, nil, []byte(keyVersion))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Store saves a secret under service/account and persists the whole store.
func (k *Keystore) Store(service, account, secret string) error {
	d := k.load()
	if d.Entries[service] == nil {
		d.Entries[service] = make(map[string]string)
	}
	d.Entries[service][account] = secret
	return k.save(d)
}

// Retrieve returns the secret for service/account, or ok=false.
func (k *Keystore) Retrieve(service, account string) (string, bool) {
	d := k.load()
	secret, ok := d.Entries[service][account]
	return secret, ok
}

// Delete removes the entry for service/account. Deleting a missing entry is
// a no-op.
func (k *Keystore) Delete(service, account string) error {
	d := k.load()
	if _, ok := d.Entries[service][account]; !ok {
		return nil
	}
	delete(d.Entries[service], account)
	if len(d.Entries[service]) == 0 {
		delete(d.Entries, service)
	}
	return k.save(d)
}

// List returns the accounts stored under service.
func (k *Keystore) List(service string) []string {
	d := k.load()
	accounts := make([]string, 0, len(d.Entries[service]))
	for a := range d.Entries[service] {
		accounts = append(accounts, a)
	}
	return accounts
}

// load reads and decrypts the store. Any unreadable, undecryptable, or
// unparseable blob is treated as an empty store: never block the user over
// a damaged local cache.
func (k *Keystore) load() *data {
	empty := &data{Version: dataVersion, Entries: make(map[string]map[string]string)}

	blob, err := os.ReadFile(k.path)
	if err != nil {
		if !os.IsNotExist(err) {
			k.log.Warn().Err(err).Str("path", k.path).Msg("keystore unreadable, treating as empty")
			metrics.KeystoreResetsTotal.Inc()
		}
		return empty
	}

	plaintext, err := k.decrypt(blob)
	if err != nil {
		k.log.Warn().Err(err).Str("path", k.path).Msg("keystore corrupt, treating as empty")
		metrics.KeystoreResetsTotal.Inc()
		return empty
	}

	d := &data{}
	if err := json.Unmarshal(plaintext, d); err != nil {
		k.log.Warn().Err(err).Str("path", k.path).Msg("keystore contents unparseable, treating as empty")
		metrics.KeystoreResetsTotal.Inc()
		return empty
	}
	if d.Entries == nil {
		d.Entries = make(map[string]map[string]string)
	}
	return d
}

// save encrypts and writes the whole store atomically, then unconditionally
// sets owner-only permissions.
func (k *Keystore) save(d *data) error {
	plaintext, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding keystore: %w", err)
	}
	blob, err := k.encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypting keystore: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return err
	}
	tmp := k.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return fmt.Errorf("writing keystore: %w", err)
	}
	if err := os.Rename(tmp, k.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing keystore: %w", err)
	}
	return os.Chmod(k.path, 0o600)
}

// encrypt produces IV || TAG || CIPHERTEXT.
func (k *Keystore) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}

	// Seal appends the tag after the ciphertext; the file format wants it
	// between IV and ciphertext.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, ivSize+tagSize+len(ct))
	blob = append(blob, iv...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)
	return blob, nil
}

// decrypt opens an IV || TAG || CIPHERTEXT blob.
func (k *Keystore) decrypt(blob []byte) ([]byte, error) {
	if len(blob) < ivSize+tagSize {
		return nil, fmt.Errorf("keystore blob truncated: %d bytes", len(blob))
	}
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	iv := blob[:ivSize]
	tag := blob[ivSize : ivSize+tagSize]
	ct := blob[ivSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)
	return gcm.Open(nil, iv, sealed, nil)
}

// Path returns the keystore file location.
func (k *Keystore) Path() string {
	return k.path
}
