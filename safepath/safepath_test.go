package safepath

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveInside(t *testing.T) {
	base := t.TempDir()
	sub := filepath.Join(base, "docs")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	// Relative request.
	got, err := Resolve(base, "docs")
	if err != nil {
		t.Fatalf("Resolve relative: %v", err)
	}
	if filepath.Base(got) != "docs" {
		t.Errorf("Resolve relative = %q", got)
	}

	// Absolute request inside base.
	if _, err := Resolve(base, sub); err != nil {
		t.Errorf("Resolve absolute inside: %v", err)
	}

	// Empty request resolves to base itself.
	canonBase, err := Resolve(base, "")
	if err != nil {
		t.Fatalf("Resolve empty: %v", err)
	}
	if !Within(canonBase, got) {
		t.Errorf("%q not within %q", got, canonBase)
	}
}

func TestResolveTraversal(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()

	tests := []string{
		"../",
		"../..",
		outside,
		filepath.Join(base, "..", filepath.Base(outside)),
	}
	for _, req := range tests {
		if _, err := Resolve(base, req); !errors.Is(err, ErrPathTraversal) {
			t.Errorf("Resolve(%q) err = %v, want ErrPathTraversal", req, err)
		}
	}
}

func TestResolveSymlinkEscape(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(base, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := Resolve(base, "escape"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("symlink escape err = %v, want ErrPathTraversal", err)
	}
}

func TestResolveMissing(t *testing.T) {
	base := t.TempDir()
	if _, err := Resolve(base, "nope"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing path err = %v, want ErrNotExist", err)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr error
	}{
		{"ftp://example.com/x", ErrUnsafeScheme},
		{"file:///etc/passwd", ErrUnsafeScheme},
		{"http://127.0.0.1/x", ErrSSRF},
		{"http://10.0.0.8/x", ErrSSRF},
		{"http://192.168.1.1/x", ErrSSRF},
		{"http://[::1]/x", ErrSSRF},
		{"http://0.0.0.0/x", ErrSSRF},
		{"http://93.184.216.34/", nil}, // public literal, no DNS needed
	}
	for _, tt := range tests {
		err := ValidateURL(tt.url)
		if tt.wantErr == nil {
			if err != nil {
				t.Errorf("ValidateURL(%q) = %v, want nil", tt.url, err)
			}
			continue
		}
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, err, tt.wantErr)
		}
	}
}
