package session

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeTarball(t *testing.T, target string, entries map[string]string) {
	t.Helper()
	out, err := os.Create(target)
	assert.Nil(t, err)
	gz := gzip.NewWriter(out)
	archive := tar.NewWriter(gz)
	for name, content := range entries {
		assert.Nil(t, archive.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err = archive.Write([]byte(content))
		assert.Nil(t, err)
	}
	assert.Nil(t, archive.Close())
	assert.Nil(t, gz.Close())
	assert.Nil(t, out.Close())
}

func TestIsArchive(t *testing.T) {
	assert.True(t, isArchive("out.bin", "application/gzip"))
	assert.True(t, isArchive("out.tgz", ""))
	assert.True(t, isArchive("out.tar.gz", ""))
	assert.True(t, isArchive("out.zip", ""))
	assert.False(t, isArchive("out.nii", "application/octet-stream"))
}

func TestExtractInPlace(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "results.tgz")
	writeTarball(t, archivePath, map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "beta",
	})

	assert.Nil(t, extractInPlace(archivePath))

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	assert.Nil(t, err)
	assert.EqualValues(t, "alpha", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "sub", "b.txt"))
	assert.Nil(t, err)
	assert.EqualValues(t, "beta", string(data))
	_, err = os.Stat(archivePath)
	assert.True(t, os.IsNotExist(err), "the archive is gone after extraction")
}

func TestExtractRestoresOnFailure(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "broken.tgz")
	assert.Nil(t, os.WriteFile(archivePath, []byte("not a tarball"), 0o644))

	err := extractInPlace(archivePath)
	assert.NotNil(t, err)
	data, readErr := os.ReadFile(archivePath)
	assert.Nil(t, readErr, "a failed extraction restores the original file")
	assert.EqualValues(t, "not a tarball", string(data))
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "escape.tgz")
	writeTarball(t, archivePath, map[string]string{
		"../outside.txt": "nope",
	})

	err := extractInPlace(archivePath)
	assert.NotNil(t, err)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "outside.txt"))
	assert.True(t, os.IsNotExist(statErr))
}
