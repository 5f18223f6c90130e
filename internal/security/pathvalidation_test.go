package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"plain child", filepath.Join(dir, "frame.jpg"), false},
		{"nested child", filepath.Join(dir, "sub", "frame.jpg"), false},
		{"dot segments resolving inside", filepath.Join(dir, "sub", "..", "frame.jpg"), false},
		{"parent escape", filepath.Join(dir, "..", "frame.jpg"), true},
		{"deep escape", filepath.Join(dir, "..", "..", "etc", "passwd"), true},
		{"absolute outside", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, dir)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathWithinDirectory(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathWithinDirectory_SymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	dir := t.TempDir()

	link := filepath.Join(dir, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := ValidatePathWithinDirectory(filepath.Join(link, "frame.jpg"), dir); err == nil {
		t.Error("symlinked escape was not rejected")
	}
}
