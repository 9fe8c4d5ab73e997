package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dunglas/httpsfv"

	"storefront/internal/model"
)

// Dictionary keys of the state file.
const (
	keyCartID      = "cart_id"
	keyCheckoutURL = "checkout_url"
)

// FileStore persists the identity in a single-line file holding an
// RFC 8941 structured-field dictionary:
//
//	cart_id="gid://shopify/Cart/abc", checkout_url="https://shop.example/cart/c/abc"
//
// Writes go to a temporary file in the same directory and are renamed into
// place, so concurrent readers see either the old pair or the new pair.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements IdentityStore. A missing file or a record lacking either
// field is reported as absent.
func (s *FileStore) Load() (model.CartIdentity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.CartIdentity{}, false, nil
	}
	if err != nil {
		return model.CartIdentity{}, false, fmt.Errorf("reading cart state: %w", err)
	}

	line := strings.TrimSpace(string(data))
	if line == "" {
		return model.CartIdentity{}, false, nil
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{line})
	if err != nil {
		return model.CartIdentity{}, false, fmt.Errorf("parsing cart state: %w", err)
	}

	identity := model.CartIdentity{
		CartID:      stringMember(dict, keyCartID),
		CheckoutURL: stringMember(dict, keyCheckoutURL),
	}
	if identity.CartID == "" || identity.CheckoutURL == "" {
		return model.CartIdentity{}, false, nil
	}
	return identity, true, nil
}

// Save implements IdentityStore.
func (s *FileStore) Save(identity model.CartIdentity) error {
	if identity.CartID == "" || identity.CheckoutURL == "" {
		return ErrIncompleteIdentity
	}

	dict := httpsfv.NewDictionary()
	dict.Add(keyCartID, httpsfv.NewItem(identity.CartID))
	dict.Add(keyCheckoutURL, httpsfv.NewItem(identity.CheckoutURL))
	line, err := httpsfv.Marshal(dict)
	if err != nil {
		return fmt.Errorf("encoding cart state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.path, []byte(line+"\n"))
}

// Clear implements IdentityStore.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clearing cart state: %w", err)
	}
	return nil
}

// writeAtomic writes data to a sibling temp file and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cart state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing cart state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cart state: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("setting cart state permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing cart state: %w", err)
	}
	return nil
}

// stringMember returns the string value of key, or "" when absent or not a string.
func stringMember(dict *httpsfv.Dictionary, key string) string {
	member, ok := dict.Get(key)
	if !ok {
		return ""
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return ""
	}
	s, _ := item.Value.(string)
	return s
}
