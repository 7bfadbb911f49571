package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSandbox(t *testing.T) {
	_, err := NewSandbox("")
	assert.Error(t, err)

	sb, err := NewSandbox("/non/existent/path")
	require.NoError(t, err)
	assert.Equal(t, "/non/existent/path", sb.Root())
}

func TestSandbox_Resolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "in"), 0o750))

	sb, err := NewSandbox(root)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"relative inside", "in/report.pdf", filepath.Join(root, "in", "report.pdf"), false},
		{"absolute inside", filepath.Join(root, "a.pdf"), filepath.Join(root, "a.pdf"), false},
		{"root itself", root, root, false},
		{"nul bytes stripped", "in/re\x00port.pdf", filepath.Join(root, "in", "report.pdf"), false},
		{"dot dot escape", "../outside.pdf", "", true},
		{"absolute outside", "/etc/passwd", "", true},
		{"sibling prefix", root + "-other/x.pdf", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sb.Resolve(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSandbox_ResolveRejectsEscapingSymlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.pdf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))

	link := filepath.Join(root, "link.pdf")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	sb, err := NewSandbox(root)
	require.NoError(t, err)

	_, err = sb.Resolve("link.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestSandbox_ResolveDir(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	sb, err := NewSandbox(root)
	require.NoError(t, err)

	got, err := sb.ResolveDir("")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	got, err = sb.ResolveDir("out")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "out"), got)

	_, err = sb.ResolveDir("file.pdf")
	assert.Error(t, err)
}

func TestSandbox_MissingRootAcceptsAll(t *testing.T) {
	sb, err := NewSandbox(filepath.Join(t.TempDir(), "later"))
	require.NoError(t, err)

	got, err := sb.Resolve("/tmp/anything.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/anything.pdf", got)
}
