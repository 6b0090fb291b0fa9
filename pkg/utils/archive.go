package utils

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CreateZip writes a zip archive at dest containing every path in sources.
// Directories are walked recursively and stored with their relative layout.
func CreateZip(dest string, sources []string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", src, err)
		}
		if info.IsDir() {
			base := filepath.Base(src)
			err = filepath.Walk(src, func(path string, fi os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if fi.IsDir() {
					return nil
				}
				rel, err := filepath.Rel(src, path)
				if err != nil {
					return err
				}
				return addZipEntry(zw, path, filepath.ToSlash(filepath.Join(base, rel)))
			})
			if err != nil {
				return fmt.Errorf("failed to archive directory %s: %w", src, err)
			}
			continue
		}
		if err := addZipEntry(zw, src, filepath.Base(src)); err != nil {
			return fmt.Errorf("failed to archive %s: %w", src, err)
		}
	}
	return nil
}

func addZipEntry(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
