package session

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// isArchive reports whether a downloaded file should be unpacked in place,
// judged by the platform-reported mime type first and the name second.
func isArchive(name, mimeType string) bool {
	switch mimeType {
	case "application/gzip", "application/x-gzip", "application/zip":
		return true
	}
	for _, suffix := range []string{".tgz", ".tar.gz", ".zip"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// extractInPlace unpacks an archive into its own directory and removes it.
// The archive is first renamed aside so a failed extraction can restore it
// and no data is lost.
func extractInPlace(archivePath string) error {
	staging := archivePath + ".extracting"
	if err := os.Rename(archivePath, staging); err != nil {
		return fmt.Errorf("failed to stage %v: %w", archivePath, err)
	}
	if err := extract(staging, archivePath, filepath.Dir(archivePath)); err != nil {
		if restoreErr := os.Rename(staging, archivePath); restoreErr != nil {
			return fmt.Errorf("failed to extract %v: %v; the archive is kept at %v: %w", archivePath, err, staging, restoreErr)
		}
		return fmt.Errorf("failed to extract %v: %w", archivePath, err)
	}
	return os.Remove(staging)
}

func extract(source, originalName, destDir string) error {
	if strings.HasSuffix(originalName, ".zip") {
		return extractZip(source, destDir)
	}
	return extractTarball(source, destDir)
}

func extractTarball(source, destDir string) error {
	reader, err := os.Open(source)
	if err != nil {
		return err
	}
	defer reader.Close()
	gz, err := gzip.NewReader(reader)
	if err != nil {
		return err
	}
	defer gz.Close()
	archive := tar.NewReader(gz)
	for {
		header, err := archive.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := secureJoin(destDir, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err = writeEntry(target, archive); err != nil {
				return err
			}
		}
	}
}

func extractZip(source, destDir string) error {
	archive, err := zip.OpenReader(source)
	if err != nil {
		return err
	}
	defer archive.Close()
	for _, entry := range archive.File {
		target, err := secureJoin(destDir, entry.Name)
		if err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		reader, err := entry.Open()
		if err != nil {
			return err
		}
		err = writeEntry(target, reader)
		reader.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(target string, content io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	writer, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, err = io.Copy(writer, content)
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	return err
}

// secureJoin refuses archive entries escaping the destination directory.
func secureJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %v escapes the destination", name)
	}
	return target, nil
}
