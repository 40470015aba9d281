// Package fsblob provides a filesystem-backed blob store implementation.
package fsblob

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pulseritas/storefront/internal/blob"
)

// Store writes blobs under a root directory and serves them under a base URL.
type Store struct {
	root    string
	baseURL string
}

// New creates a filesystem blob store rooted at root. Served URLs are formed
// by joining baseURL with the object path.
func New(root, baseURL string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{
		root:    filepath.Clean(root),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

// Root returns the directory blobs are stored under.
func (s *Store) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// Put stores one blob and returns its public URL.
func (s *Store) Put(ctx context.Context, objectPath string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil {
		return "", fmt.Errorf("blob store is not configured")
	}
	fullPath, err := s.resolve(objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return s.baseURL + "/" + path.Clean(objectPath), nil
}

// Delete removes one blob. Deleting a missing blob succeeds.
func (s *Store) Delete(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("blob store is not configured")
	}
	fullPath, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// resolve maps an object path onto the root, rejecting escapes.
func (s *Store) resolve(objectPath string) (string, error) {
	objectPath = strings.TrimSpace(objectPath)
	if objectPath == "" {
		return "", blob.ErrInvalidPath
	}
	for _, segment := range strings.Split(objectPath, "/") {
		if segment == ".." {
			return "", blob.ErrInvalidPath
		}
	}
	clean := path.Clean("/" + objectPath)
	if clean == "/" {
		return "", blob.ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

var _ blob.Store = (*Store)(nil)
