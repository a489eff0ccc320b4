package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// entryTime is stamped on every entry so equal trees give equal archives.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// PackagingError wraps a filesystem failure while building an archive.
type PackagingError struct {
	Path string
	Err  error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging %s: %v", e.Path, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// Pack zips every regular file below root. Entry names are relative to root
// and use forward slashes; the root directory itself is not part of them.
func Pack(root string) ([]byte, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &PackagingError{Path: path, Err: err}
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]string, 0, len(files))
	byName := make(map[string]string, len(files))
	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, &PackagingError{Path: path, Err: err}
		}
		name := filepath.ToSlash(rel)
		entries = append(entries, name)
		byName[name] = path
	}
	sort.Strings(entries)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, name := range entries {
		if err := addFile(zw, name, byName[name]); err != nil {
			_ = zw.Close()
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, &PackagingError{Path: root, Err: err}
	}
	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &PackagingError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &PackagingError{Path: path, Err: err}
	}
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: entryTime,
	}
	hdr.SetMode(info.Mode().Perm())

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return &PackagingError{Path: path, Err: err}
	}
	if _, err := io.Copy(w, f); err != nil {
		return &PackagingError{Path: path, Err: err}
	}
	return nil
}
