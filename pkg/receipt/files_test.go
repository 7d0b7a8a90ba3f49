package receipt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMimeFromExt(t *testing.T) {
	assert.Equal(t, "image/jpeg", MimeFromExt("slip.jpg"))
	assert.Equal(t, "image/jpeg", MimeFromExt("SLIP.JPEG"))
	assert.Equal(t, "image/png", MimeFromExt("a/b/slip.png"))
	assert.Equal(t, "application/pdf", MimeFromExt("invoice.pdf"))
	assert.Equal(t, "", MimeFromExt("notes.txt"))
	assert.Equal(t, "", MimeFromExt("noext"))
}

func TestIsSupportedExt(t *testing.T) {
	for _, name := range []string{"a.png", "b.jpg", "c.jpeg", "d.gif", "e.webp", "f.pdf"} {
		assert.True(t, IsSupportedExt(name), name)
	}
	for _, name := range []string{"a.txt", "b.exe", "c", "d.csv"} {
		assert.False(t, IsSupportedExt(name), name)
	}
}

func TestIsImageExt(t *testing.T) {
	assert.True(t, IsImageExt("x.png"))
	assert.False(t, IsImageExt("x.pdf"))
}

func TestShrinkToBudgetLeavesSmallFilesAlone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.png")
	require.NoError(t, os.WriteFile(path, []byte("tiny"), 0o644))
	require.NoError(t, ShrinkToBudget(path, MaxStoredBytes))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("tiny"), data)
}

func TestShrinkToBudgetIgnoresUndecodable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.png")
	require.NoError(t, os.WriteFile(path, make([]byte, MaxStoredBytes+1), 0o644))
	// not a real PNG: shrink should leave it in place without error
	require.NoError(t, ShrinkToBudget(path, MaxStoredBytes))
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "sub", "dst.png")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))
	require.NoError(t, MoveFile(src, dst))
	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), data)
}
