package bill

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage keeps receipt files next to the bills database
type Storage interface {
	// Save writes a receipt and returns the name to read it back with
	Save(name string, data []byte) (string, error)

	// Get reads a receipt back
	Get(name string) ([]byte, error)

	// Delete removes a receipt
	Delete(name string) error
}

// LocalStorage stores receipts as flat files under a base directory
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the receipts directory if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// path confines name to the base directory
func (l *LocalStorage) path(name string) (string, error) {
	clean := filepath.Base(filepath.Clean(name))
	if clean == "." || clean == string(filepath.Separator) || clean != name {
		return "", fmt.Errorf("invalid receipt name %q", name)
	}
	return filepath.Join(l.basePath, clean), nil
}

// Save writes the receipt to disk
func (l *LocalStorage) Save(name string, data []byte) (string, error) {
	path, err := l.path(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing receipt: %w", err)
	}
	return name, nil
}

// Get reads the receipt from disk
func (l *LocalStorage) Get(name string) ([]byte, error) {
	path, err := l.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: receipt %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading receipt: %w", err)
	}
	return data, nil
}

// Delete removes the receipt from disk
func (l *LocalStorage) Delete(name string) error {
	path, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	return nil
}
