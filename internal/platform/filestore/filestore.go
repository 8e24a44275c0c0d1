// Package filestore persists uploaded profile documents. The reference kept
// on the account is opaque to callers; only this package knows the layout.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	dErrors "ballotbox/pkg/domain-errors"
)

// Store saves uploaded files and resolves references back to paths.
type Store interface {
	// Save writes the content and returns an opaque reference.
	Save(kind, originalName string, content io.Reader) (string, error)
	// Open resolves a reference produced by Save.
	Open(ref string) (io.ReadCloser, error)
}

// Disk stores files under a root directory, one subdirectory per kind.
// Names are random so uploads can never collide or traverse.
type Disk struct {
	root string
}

func NewDisk(root string) (*Disk, error) {
	if root == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "upload root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) Save(kind, originalName string, content io.Reader) (string, error) {
	kind = sanitizeKind(kind)
	dir := filepath.Join(d.root, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + sanitizeExt(originalName)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return filepath.Join(kind, name), nil
}

func (d *Disk) Open(ref string) (io.ReadCloser, error) {
	// filepath.Clean("") yields ".", so the empty reference must be caught
	// before cleaning or it resolves to the root directory itself.
	clean := filepath.Clean(ref)
	if ref == "" || clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid file reference")
	}
	f, err := os.Open(filepath.Join(d.root, clean))
	if os.IsNotExist(err) {
		return nil, dErrors.New(dErrors.CodeNotFound, "file not found")
	}
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return f, nil
}

func sanitizeKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return "misc"
	}
	var b strings.Builder
	for _, r := range kind {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "misc"
	}
	return b.String()
}

func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
