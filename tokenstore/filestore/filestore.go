package filestore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/jrsteele09/go-oauth-broker/internal/errors"
	"github.com/jrsteele09/go-oauth-broker/tokenstore"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
	fileExt  = ".tok"
)

// Argon2id parameters for the passphrase (RFC 9106 second recommendation).
const (
	saltFile    = "salt"
	saltSize    = 16
	argonTime   = 3
	argonMemory = 64 * 1024
	argonLanes  = 4
)

// ErrDecrypt is returned when a stored value cannot be opened, usually
// because the passphrase changed.
var ErrDecrypt = errors.New("token store: unable to decrypt value")

var _ tokenstore.Store = (*FileStore)(nil)

// FileStore keeps one sealed file per key in a private directory.
type FileStore struct {
	dir  string
	aead cipher.AEAD
}

// New creates dir if needed and derives the sealing key from passphrase
// with Argon2id, salted by a random salt kept in the directory. An empty
// passphrase still seals values, but only obscures them.
func New(dir, passphrase string) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating token store directory: %w", err)
	}

	salt, err := loadSalt(dir)
	if err != nil {
		return nil, err
	}
	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonLanes, chacha20poly1305.KeySize)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating token store cipher: %w", err)
	}
	return &FileStore{dir: dir, aead: aead}, nil
}

// loadSalt reads the directory salt, creating it on first use. Concurrent
// creators agree on whichever file was linked first.
func loadSalt(dir string) ([]byte, error) {
	path := filepath.Join(dir, saltFile)
	salt, err := os.ReadFile(path)
	if err == nil && len(salt) == saltSize {
		return salt, nil
	}
	if err != nil && !apperrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading token store salt: %w", err)
	}
	if err == nil {
		return nil, fmt.Errorf("token store salt %s is corrupt", path)
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating token store salt: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if apperrors.Is(err, fs.ErrExist) {
		return loadExistingSalt(path)
	}
	if err != nil {
		return nil, fmt.Errorf("creating token store salt: %w", err)
	}
	if _, err := file.Write(salt); err != nil {
		file.Close()
		return nil, fmt.Errorf("writing token store salt: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("writing token store salt: %w", err)
	}
	return salt, nil
}

func loadExistingSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading token store salt: %w", err)
	}
	if len(salt) != saltSize {
		return nil, fmt.Errorf("token store salt %s is corrupt", path)
	}
	return salt, nil
}

// Dir is the directory holding the sealed files.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+fileExt)
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	sealed, err := os.ReadFile(s.path(key))
	if apperrors.Is(err, fs.ErrNotExist) {
		return nil, tokenstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}

	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize+s.aead.Overhead() {
		return nil, ErrDecrypt
	}
	plain, err := s.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], []byte(key))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// Set writes through a temp file and rename so readers never see a partial value.
func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, value, []byte(key))

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %q: %w", key, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !apperrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}
