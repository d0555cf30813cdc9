package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LocalFSClient implements Client for the local filesystem. Writes are
// atomic (temp file + rename) so a crashed run never leaves a partial
// Parquet file behind for the next merge to read.
type LocalFSClient struct {
	basePath string
}

// NewLocalFSClient creates a local filesystem storage client rooted at
// basePath, creating the directory when needed.
func NewLocalFSClient(basePath string) (*LocalFSClient, error) {
	if basePath == "~" || len(basePath) > 1 && basePath[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		basePath = filepath.Join(home, basePath[1:])
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalFSClient{basePath: absPath}, nil
}

func (c *LocalFSClient) resolve(key string) (string, error) {
	cleanKey := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleanKey) {
		return "", fmt.Errorf("absolute paths not allowed in key: %s", key)
	}
	fullPath := filepath.Join(c.basePath, cleanKey)
	rel, err := filepath.Rel(c.basePath, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid key path: %s", key)
	}
	return fullPath, nil
}

// Write implements atomic file write for the local filesystem.
func (c *LocalFSClient) Write(ctx context.Context, key string, data []byte) error {
	fullPath, err := c.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(fullPath), err)
	}

	tmpFile := fmt.Sprintf("%s.tmp.%d", fullPath, time.Now().UnixNano())
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tmpFile, fullPath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

func (c *LocalFSClient) Read(ctx context.Context, key string) ([]byte, error) {
	fullPath, err := c.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// List walks the tree under prefix. A missing prefix directory yields an
// empty listing, matching how object stores behave.
func (c *LocalFSClient) List(ctx context.Context, prefix string) ([]string, error) {
	root, err := c.resolve(prefix)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var keys []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(c.basePath, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *LocalFSClient) Delete(ctx context.Context, key string) error {
	fullPath, err := c.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close implements the Client interface.
func (c *LocalFSClient) Close() error {
	return nil
}
