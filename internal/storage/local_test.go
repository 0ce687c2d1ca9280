package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndDelete(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	url, err := l.Save(strings.NewReader("%PDF-1.4 fake"), "dekont.pdf")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") || !strings.HasSuffix(url, ".pdf") {
		t.Errorf("unexpected url %q", url)
	}

	// file exists on disk under the random name
	name := strings.TrimPrefix(url, "/uploads/")
	if _, err := os.Stat(filepath.Join(l.Dir, name)); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	if err := l.Delete(url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(l.Dir, name)); !os.IsNotExist(err) {
		t.Error("file still present after delete")
	}
}

func TestSave_RejectsUnknownExtension(t *testing.T) {
	l, _ := NewLocal(t.TempDir())
	if _, err := l.Save(strings.NewReader("#!/bin/sh"), "evil.sh"); err == nil {
		t.Error("executable upload accepted")
	}
}

func TestDelete_RejectsTraversal(t *testing.T) {
	l, _ := NewLocal(t.TempDir())
	for _, p := range []string{"/uploads/../etc/passwd", "/etc/passwd", "/uploads/a/b"} {
		if err := l.Delete(p); err == nil {
			t.Errorf("path %q accepted", p)
		}
	}
}
