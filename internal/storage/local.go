// Package storage keeps uploaded documents and receipts on the local disk.
// The public URL namespace is /uploads/, served by the router.
package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Allowed upload extensions. Everything else is rejected before touching
// the disk.
var allowedExt = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

type Local struct {
	Dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Dir: dir}, nil
}

// Save writes the uploaded content under a random name, keeping only the
// original extension, and returns the public URL path.
func (l *Local) Save(r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExt[ext] {
		return "", fmt.Errorf("file type %q not allowed", ext)
	}

	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("random name: %w", err)
	}
	name := hex.EncodeToString(b[:]) + ext

	f, err := os.Create(filepath.Join(l.Dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	return "/uploads/" + name, nil
}

// Delete removes a previously saved file by its public URL path. Paths
// outside /uploads/ are refused.
func (l *Local) Delete(url string) error {
	name, ok := strings.CutPrefix(url, "/uploads/")
	if !ok || name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid upload path %q", url)
	}
	return os.Remove(filepath.Join(l.Dir, name))
}
