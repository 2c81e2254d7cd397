package evidence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrObjectNotFound is returned when no blob matches the name
var ErrObjectNotFound = errors.New("object not found")

// BlobStore is the object storage behind the encryption proxy. Objects are
// opaque byte blobs addressed by name; the proxy stores only ciphertext.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// prefix mirrors the bucket folder layout of the original storage
const prefix = "incidentes/"

// EncSuffix marks stored ciphertext objects
const EncSuffix = ".enc"

// ObjectName builds the storage path for an uploaded file name
func ObjectName(filename string) string {
	return prefix + filepath.Base(filename) + EncSuffix
}

// DownloadName strips the ciphertext suffix for the attachment filename
func DownloadName(objectName string) string {
	return strings.TrimSuffix(filepath.Base(objectName), EncSuffix)
}

// FSStore is a filesystem-backed blob store
type FSStore struct {
	root string
	mu   sync.RWMutex
}

// NewFSStore creates a blob store rooted at dir
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FSStore{root: dir}, nil
}

// path resolves a sanitized on-disk path; names never escape the root
func (s *FSStore) path(name string) string {
	return filepath.Join(s.root, filepath.Base(strings.TrimPrefix(name, prefix)))
}

// Put stores a blob, overwriting any previous object of the same name
func (s *FSStore) Put(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path(name), data, 0o600); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

// Get fetches a blob by name
func (s *FSStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// Delete removes a blob by name
func (s *FSStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return ErrObjectNotFound
	}
	return err
}

// Proxy couples the cipher with the blob store: every object is encrypted
// before Put and decrypted after Get. The IV travels inside the blob.
type Proxy struct {
	cipher *Cipher
	store  BlobStore
}

// NewProxy creates an encryption proxy over the given store
func NewProxy(cipher *Cipher, store BlobStore) *Proxy {
	return &Proxy{cipher: cipher, store: store}
}

// Upload encrypts and stores a file, returning the object name
func (p *Proxy) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	encrypted, err := p.cipher.Encrypt(data)
	if err != nil {
		return "", err
	}
	name := ObjectName(filename)
	if err := p.store.Put(ctx, name, encrypted); err != nil {
		return "", err
	}
	return name, nil
}

// Download fetches and decrypts an object
func (p *Proxy) Download(ctx context.Context, objectName string) ([]byte, error) {
	encrypted, err := p.store.Get(ctx, objectName)
	if err != nil {
		return nil, err
	}
	return p.cipher.Decrypt(encrypted)
}
