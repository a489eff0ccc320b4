package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	artifactExt = ".zip"
	tempExt     = ".tmp"
)

// FileStore keeps one <buildId>.zip per build in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(buildID string) string {
	return filepath.Join(s.dir, buildID+artifactExt)
}

// Put writes to a hidden temp file in the same directory and renames it into
// place, so the sweep never sees a partially written archive.
func (s *FileStore) Put(ctx context.Context, buildID string, data []byte) error {
	if err := checkID(buildID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+buildID+"-*"+tempExt)
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.path(buildID)); err != nil {
		return fmt.Errorf("commit artifact: %w", err)
	}
	committed = true
	return nil
}

func (s *FileStore) Get(_ context.Context, buildID string) ([]byte, error) {
	if err := checkID(buildID); err != nil {
		return nil, ErrArtifactNotFound
	}
	data, err := os.ReadFile(s.path(buildID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// List returns committed artifacts only; temp files are skipped.
func (s *FileStore) List(_ context.Context) ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	out := make([]ArtifactInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, artifactExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat artifact %s: %w", name, err)
		}
		out = append(out, ArtifactInfo{
			BuildID: strings.TrimSuffix(name, artifactExt),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, buildID string) error {
	if err := checkID(buildID); err != nil {
		return err
	}
	err := os.Remove(s.path(buildID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

// PurgeStale removes hidden temp files of writes that never committed, e.g.
// after a crash between CreateTemp and Rename.
func (s *FileStore) PurgeStale(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list artifacts: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, tempExt) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove temp artifact %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
