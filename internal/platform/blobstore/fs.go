package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FS stores each blob as a file under root with a .meta sidecar holding the
// content type.
type FS struct {
	root string
}

type fsMeta struct {
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

func NewFS(root string) (*FS, error) {
	if root == "" {
		root = "./data/blobs"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FS{root: root}, nil
}

func (f *FS) Driver() Driver { return DriverFS }

func (f *FS) paths(key string) (string, string, string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", "", "", err
	}
	data := filepath.Join(f.root, filepath.FromSlash(k))
	return k, data, data + ".meta", nil
}

func (f *FS) Put(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	k, dataPath, metaPath, err := f.paths(key)
	if err != nil {
		return "", err
	}
	data, err := readLimited(r)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o750); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(dataPath, data, 0o640); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	meta, _ := json.Marshal(fsMeta{ContentType: contentType, Size: int64(len(data))})
	if err := os.WriteFile(metaPath, meta, 0o640); err != nil {
		return "", fmt.Errorf("write blob meta: %w", err)
	}
	return RefURL(k), nil
}

func (f *FS) Get(_ context.Context, key string) (Object, io.ReadCloser, error) {
	k, dataPath, metaPath, err := f.paths(key)
	if err != nil {
		return Object{}, nil, err
	}
	file, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Object{}, nil, ErrNotFound
	}
	if err != nil {
		return Object{}, nil, fmt.Errorf("open blob: %w", err)
	}
	obj := Object{Key: k}
	if raw, err := os.ReadFile(metaPath); err == nil {
		var m fsMeta
		if json.Unmarshal(raw, &m) == nil {
			obj.ContentType = m.ContentType
			obj.Size = m.Size
		}
	}
	if obj.Size == 0 {
		if st, err := file.Stat(); err == nil {
			obj.Size = st.Size()
		}
	}
	return obj, file, nil
}

func (f *FS) Delete(_ context.Context, key string) error {
	_, dataPath, metaPath, err := f.paths(key)
	if err != nil {
		return err
	}
	for _, p := range []string{dataPath, metaPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete blob: %w", err)
		}
	}
	return nil
}
