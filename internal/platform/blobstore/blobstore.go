// Package blobstore keeps incident attachments. The inline driver embeds
// the file in a data: URL on the record itself; the other drivers store the
// bytes elsewhere and hand back a blob:// reference that the file endpoint
// resolves.
package blobstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

type Driver string

const (
	DriverInline Driver = "inline"
	DriverMemory Driver = "memory"
	DriverFS     Driver = "fs"
	DriverS3     Driver = "s3"
)

// MaxFileSize is the largest accepted attachment.
const MaxFileSize = 10 << 20

// RefScheme prefixes URLs that point into a non-inline store.
const RefScheme = "blob://"

var (
	ErrNotFound      = errors.New("blob not found")
	ErrFileTooLarge  = errors.New("file exceeds maximum allowed size")
	ErrInvalidKey    = errors.New("invalid blob key")
	ErrUnsupported   = errors.New("operation not supported by blob driver")
	ErrUnknownDriver = errors.New("unknown blob driver")
)

// Object describes a stored blob.
type Object struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Store saves attachment bytes. Put returns the URL to record on the
// attachment.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Get(ctx context.Context, key string) (Object, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Options selects and configures a driver.
type Options struct {
	Driver Driver
	// Path is the fs driver root.
	Path string
	S3   S3Config
}

// Open builds the configured store. An empty driver means inline.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverInline:
		return Inline{}, nil
	case DriverMemory:
		return NewMemory(), nil
	case DriverFS:
		return NewFS(opts.Path)
	case DriverS3:
		return NewS3(ctx, opts.S3)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
}

// readLimited reads r fully, failing once it passes MaxFileSize.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// CleanKey rejects keys that are empty, absolute or climb out of the store.
func CleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return path.Clean(key), nil
}

// RefURL is the attachment URL for a blob kept in a non-inline store.
func RefURL(key string) string { return RefScheme + key }

// KeyFromURL extracts the key from a blob:// URL.
func KeyFromURL(u string) (string, bool) {
	key, ok := strings.CutPrefix(u, RefScheme)
	return key, ok && key != ""
}

// DataURL encodes data as a base64 data: URL.
func DataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Inline keeps nothing; the whole file travels in the returned data: URL.
type Inline struct{}

func (Inline) Driver() Driver { return DriverInline }

func (Inline) Put(_ context.Context, _ string, contentType string, r io.Reader) (string, error) {
	data, err := readLimited(r)
	if err != nil {
		return "", err
	}
	return DataURL(contentType, data), nil
}

func (Inline) Get(context.Context, string) (Object, io.ReadCloser, error) {
	return Object{}, nil, ErrUnsupported
}

func (Inline) Delete(context.Context, string) error { return nil }

func nopReader(data []byte) io.ReadCloser { return io.NopCloser(bytes.NewReader(data)) }
