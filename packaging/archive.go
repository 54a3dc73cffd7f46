package packaging

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ValidateArchivePath rejects archive entry names that are absolute or escape the
// extraction root.
func ValidateArchivePath(name string) error {
	normalized := strings.ReplaceAll(name, "\\", "/")
	if strings.TrimSpace(normalized) == "" || strings.HasPrefix(normalized, "/") {
		return ErrInvalidPath
	}
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return ErrInvalidPath
		}
	}
	if filepath.VolumeName(normalized) != "" {
		return ErrInvalidPath
	}
	return nil
}

// ExtractZip extracts the zip archive at archivePath into destDir. When subtree is
// non-empty only entries below that prefix are extracted, with the prefix removed.
func ExtractZip(archivePath, destDir, subtree string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer func() { _ = reader.Close() }()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create extraction directory: %w", err)
	}

	for _, file := range reader.File {
		name := file.Name
		if subtree != "" {
			if !strings.HasPrefix(name, subtree) {
				continue
			}
			name = strings.TrimPrefix(name, subtree)
			if name == "" {
				continue
			}
		}
		if err := ValidateArchivePath(name); err != nil {
			return fmt.Errorf("%w: %s", err, file.Name)
		}

		target := filepath.Join(destDir, filepath.FromSlash(name))
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open entry %s: %w", file.Name, err)
		}
		err = writeFile(target, rc)
		_ = rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// ExtractTarball extracts a gzip-compressed tarball into destDir, stripping the first
// path component of every entry (npm tarballs nest everything under "package/").
func ExtractTarball(r io.Reader, destDir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create extraction directory: %w", err)
	}

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tarball: %w", err)
		}

		name := stripFirstComponent(header.Name)
		if name == "" {
			continue
		}
		if err := ValidateArchivePath(name); err != nil {
			return fmt.Errorf("%w: %s", err, header.Name)
		}
		target := filepath.Join(destDir, filepath.FromSlash(name))

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr); err != nil {
				return err
			}
		}
		// Links and special files are not part of framework packages
	}
}

func stripFirstComponent(name string) string {
	name = path.Clean(strings.ReplaceAll(name, "\\", "/"))
	_, rest, found := strings.Cut(name, "/")
	if !found {
		return ""
	}
	return rest
}

func writeFile(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return f.Close()
}
