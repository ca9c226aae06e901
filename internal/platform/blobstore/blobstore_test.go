package blobstore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestInline_Put(t *testing.T) {
	url, err := Inline{}.Put(context.Background(), "ignored", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "data:text/plain;base64,aGVsbG8=" {
		t.Errorf("unexpected data URL %q", url)
	}
	if _, ok := KeyFromURL(url); ok {
		t.Error("data URL should not parse as a blob ref")
	}
	if _, _, err := (Inline{}).Get(context.Background(), "x"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestDataURL_DefaultType(t *testing.T) {
	if got := DataURL("", []byte{0}); got != "data:application/octet-stream;base64,AA==" {
		t.Errorf("unexpected %q", got)
	}
}

func TestCleanKey(t *testing.T) {
	for _, bad := range []string{"", "  ", "/etc/passwd", "../x", "a/../../b", `a\b`} {
		if _, err := CleanKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("CleanKey(%q): expected ErrInvalidKey, got %v", bad, err)
		}
	}
	if k, err := CleanKey("incidents/i1//x.png"); err != nil || k != "incidents/i1/x.png" {
		t.Errorf("unexpected %q %v", k, err)
	}
}

func storeRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	url, err := s.Put(ctx, "incidents/i1/xray.png", "image/png", bytes.NewReader([]byte("png-bytes")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	key, ok := KeyFromURL(url)
	if !ok || key != "incidents/i1/xray.png" {
		t.Fatalf("unexpected url %q", url)
	}

	obj, body, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "png-bytes" || obj.ContentType != "image/png" || obj.Size != 9 {
		t.Errorf("unexpected object %+v %q", obj, data)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemory(t *testing.T) { storeRoundTrip(t, NewMemory()) }

func TestFS(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	storeRoundTrip(t, s)
	if err := s.Delete(context.Background(), "never/written"); err != nil {
		t.Errorf("deleting a missing blob should succeed, got %v", err)
	}
}

func TestS3(t *testing.T) {
	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "attachments",
		Endpoint:        "http://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: newFakeS3()},
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	if s.Driver() != DriverS3 {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	storeRoundTrip(t, s)
}

func TestNewS3_RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Config{}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestPut_TooLarge(t *testing.T) {
	big := bytes.NewReader(make([]byte, MaxFileSize+1))
	if _, err := NewMemory().Put(context.Background(), "k", "", big); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		opts Options
		want Driver
	}{
		{Options{}, DriverInline},
		{Options{Driver: DriverMemory}, DriverMemory},
		{Options{Driver: DriverFS, Path: t.TempDir()}, DriverFS},
	}
	for _, tt := range tests {
		s, err := Open(ctx, tt.opts)
		if err != nil {
			t.Fatalf("Open(%v): %v", tt.opts.Driver, err)
		}
		if s.Driver() != tt.want {
			t.Errorf("Open(%v) driver = %s", tt.opts.Driver, s.Driver())
		}
	}
	if _, err := Open(ctx, Options{Driver: "tape"}); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestHandler_Download(t *testing.T) {
	store := NewMemory()
	_, _ = store.Put(context.Background(), "incidents/i1/a.txt", "text/plain", strings.NewReader("hi"))

	e := echo.New()
	NewHandler(store).RegisterRoutes(e.Group("/api/v1"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/incidents/i1/a.txt", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "hi" {
		t.Fatalf("expected 200 hi, got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderContentType) != "text/plain" {
		t.Errorf("unexpected content type %q", rec.Header().Get(echo.HeaderContentType))
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/incidents/i1/missing.txt", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// fakeS3 answers the path-style PUT, GET and DELETE object calls the S3
// store makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string]fakeObject{}} }

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			body = decodeAWSChunked(body)
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		return response(http.StatusOK, nil, http.Header{"Etag": {`"etag"`}}), nil
	case http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			return response(http.StatusNotFound,
				[]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`),
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return response(http.StatusOK, obj.body, http.Header{
			"Content-Type":   {obj.contentType},
			"Content-Length": {strconv.Itoa(len(obj.body))},
		}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return response(http.StatusNoContent, nil, http.Header{}), nil
	}
	return response(http.StatusNotImplemented, nil, http.Header{}), nil
}

func response(code int, body []byte, h http.Header) *http.Response {
	return &http.Response{
		StatusCode:    code,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// decodeAWSChunked strips aws-chunked framing: "<hex>[;ext]\r\n<data>\r\n"
// repeated until a zero-length chunk, followed by trailers.
func decodeAWSChunked(b []byte) []byte {
	r := bufio.NewReader(bytes.NewReader(b))
	var out []byte
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return out
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		n, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || n == 0 {
			return out
		}
		chunk := make([]byte, n)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return out
		}
		out = append(out, chunk...)
		_, _ = r.ReadString('\n')
	}
}
