package clients

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// SnapshotStorage keeps pipeline snapshots as files under BaseDir. Every Put
// replaces the whole blob via tmp-write + rename so a concurrent reader never
// observes a half-written snapshot.
type SnapshotStorage struct {
	BaseDir string
}

func NewSnapshotStorage(baseDir string) (*SnapshotStorage, error) {
	if baseDir == "" {
		baseDir = "./data"
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure snapshot dir %q: %w", baseDir, err)
	}

	return &SnapshotStorage{BaseDir: baseDir}, nil
}

func (s *SnapshotStorage) Put(ctx context.Context, name string, payload []byte) error {
	name = filepath.Base(name)
	path := filepath.Join(s.BaseDir, name)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %q: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize snapshot %q: %w", name, err)
	}

	return nil
}

func (s *SnapshotStorage) Get(ctx context.Context, name string) ([]byte, error) {
	name = filepath.Base(name)
	data, err := os.ReadFile(filepath.Join(s.BaseDir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %q: %w", name, err)
	}
	return data, nil
}

// FileStorage stores generated export files under BaseDir with unique names
// and builds their public download URLs.
type FileStorage struct {
	BaseDir      string
	PublicPrefix string // URL prefix where files are served, e.g. "/files"
	BaseURL      string // optional absolute base URL used to build file URLs
}

func NewFileStorage(baseDir, publicPrefix, baseURL string) (*FileStorage, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if publicPrefix == "" {
		publicPrefix = "/files"
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure export dir %q: %w", baseDir, err)
	}

	return &FileStorage{BaseDir: baseDir, PublicPrefix: publicPrefix, BaseURL: baseURL}, nil
}

// Save writes data under a unique filename (random prefix keeps the provided
// name as suffix) and returns the stored filename.
func (s *FileStorage) Save(ctx context.Context, fileName string, data []byte) (string, error) {
	fileName = filepath.Base(fileName)

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}
	final := fmt.Sprintf("%s_%s", hex.EncodeToString(randBytes), fileName)

	path := filepath.Join(s.BaseDir, final)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}

	return final, nil
}

// GetURL returns the public URL for a saved file. With BaseURL configured the
// URL is absolute, otherwise it is a path relative to the server root.
func (s *FileStorage) GetURL(fileName string) string {
	prefix := s.PublicPrefix
	if prefix == "" {
		prefix = "/files"
	}
	if prefix[0] != '/' {
		prefix = "/" + prefix
	}

	if s.BaseURL != "" {
		base := s.BaseURL
		if base[len(base)-1] == '/' {
			base = base[:len(base)-1]
		}
		return fmt.Sprintf("%s%s/%s", base, prefix, fileName)
	}

	return fmt.Sprintf("%s/%s", prefix, fileName)
}

// CleanupOlderThan deletes export files older than the given duration.
func (s *FileStorage) CleanupOlderThan(d time.Duration) error {
	now := time.Now()
	return filepath.WalkDir(s.BaseDir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime()) > d {
			_ = os.Remove(path) // best-effort
		}
		return nil
	})
}
