package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/and161185/terrarium/internal/errs"
)

// Store is the persistent local key/value storage the app keeps between runs.
// Missing keys return errs.ErrNotFound.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// ---- file store ----

const (
	storeFile = "store.json"
	keyFile   = "device.key"
	saltFile  = "store.salt"
)

type storeData struct {
	Values map[string]string `json:"values"` // key -> base64(nonce||ciphertext)
}

// FileStore keeps values sealed with XChaCha20-Poly1305 in <dir>/store.json.
type FileStore struct {
	mu  sync.Mutex
	dir string
	key []byte
}

// OpenFileStore opens (creating if needed) a store in dir. With an empty
// passphrase the sealing key is a random device key kept in dir; otherwise
// it is derived from the passphrase.
func OpenFileStore(dir, passphrase string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("state dir: %w", err)
	}
	var (
		key []byte
		err error
	)
	if passphrase != "" {
		var salt []byte
		salt, err = loadOrCreate(filepath.Join(dir, saltFile), SaltLen)
		if err == nil {
			key = KeyFromPassphrase([]byte(passphrase), salt)
		}
	} else {
		key, err = loadOrCreate(filepath.Join(dir, keyFile), KeyLen)
	}
	if err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, key: key}, nil
}

func loadOrCreate(path string, n int) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		if len(b) != n {
			return nil, fmt.Errorf("%s: want %d bytes, got %d", filepath.Base(path), n, len(b))
		}
		return b, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	b, err = randBytes(n)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *FileStore) path() string { return filepath.Join(s.dir, storeFile) }

func (s *FileStore) load() (storeData, error) {
	d := storeData{Values: map[string]string{}}
	b, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return d, nil
	}
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return d, fmt.Errorf("decode store: %w", err)
	}
	if d.Values == nil {
		d.Values = map[string]string{}
	}
	return d, nil
}

func (s *FileStore) save(d storeData) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}

// Get returns the value stored under key.
func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.load()
	if err != nil {
		return "", err
	}
	enc, ok := d.Values[key]
	if !ok {
		return "", errs.ErrNotFound
	}
	sealed, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("decode %q: %w", key, err)
	}
	pt, err := open(s.key, sealed, []byte(key))
	if err != nil {
		return "", fmt.Errorf("open %q: %w", key, err)
	}
	return string(pt), nil
}

// Set stores value under key.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.load()
	if err != nil {
		return err
	}
	sealed, err := seal(s.key, []byte(value), []byte(key))
	if err != nil {
		return err
	}
	d.Values[key] = base64.StdEncoding.EncodeToString(sealed)
	return s.save(d)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := d.Values[key]; !ok {
		return nil
	}
	delete(d.Values, key)
	return s.save(d)
}

// ---- memory store ----

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns a MemoryStore seeded with values.
func NewMemoryStore(values map[string]string) *MemoryStore {
	m := &MemoryStore{values: map[string]string{}}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", errs.ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}
