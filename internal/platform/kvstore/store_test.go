package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string   `json:"id"`
	Cost  *float64 `json:"cost,omitempty"`
	Files []string `json:"files"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	file, err := NewFile(filepath.Join(dir, "files"))
	require.NoError(t, err)
	lite, err := NewSQLite(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })
	return map[string]Store{
		DriverMemory: NewMemory(),
		DriverFile:   file,
		DriverSQLite: lite,
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := s.Get(context.Background(), "dental_patients")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, v)
		})
	}
}

func TestStore_PutOverwriteDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, "k", []byte(`[1]`)))
			require.NoError(t, s.Put(ctx, "k", []byte(`[1,2]`)))

			v, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `[1,2]`, string(v))

			require.NoError(t, s.Delete(ctx, "k"))
			_, ok, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)

			// deleting a missing key is not an error
			assert.NoError(t, s.Delete(ctx, "k"))
		})
	}
}

func TestStore_RejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", " ", "../escape", "a/b", `a\b`} {
				err := s.Put(ctx, key, []byte(`{}`))
				assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
			}
		})
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cost := 120.5
	in := []record{
		{ID: "a", Cost: &cost, Files: []string{"x.png"}},
		{ID: "b", Files: []string{}},
	}
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, PutJSON(ctx, s, "records", in))

			var out []record
			ok, err := GetJSON(ctx, s, "records", &out)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, in, out)
		})
	}
}

func TestGetJSON_DecodeFailure(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Put(ctx, "records", []byte(`{"not":"an array"}`)))

	var out []record
	ok, err := GetJSON(ctx, s, "records", &out)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	buf := []byte(`[1]`)
	require.NoError(t, s.Put(ctx, "k", buf))
	buf[1] = '9'

	v, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(v))
}

func TestPing(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Ping(ctx, NewMemory()))

	dir := filepath.Join(t.TempDir(), "state")
	f, err := NewFile(dir)
	require.NoError(t, err)
	assert.NoError(t, Ping(ctx, f))

	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, Ping(ctx, f))
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, a.Put(ctx, "dental_incidents", []byte(`[]`)))

	_, err = os.Stat(filepath.Join(dir, "dental_incidents.json"))
	require.NoError(t, err)

	b, err := NewFile(dir)
	require.NoError(t, err)
	v, ok, err := b.Get(ctx, "dental_incidents")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(v))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSQLite_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	a, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, a.Put(ctx, "dental_notifications", []byte(`[{"id":"1"}]`)))
	require.NoError(t, a.Close())

	b, err := NewSQLite(path)
	require.NoError(t, err)
	defer b.Close()
	v, ok, err := b.Get(ctx, "dental_notifications")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"1"}]`, string(v))
	assert.NoError(t, Ping(ctx, b))
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Options{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Options{Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	s, err = Open(ctx, Options{Driver: "SQLite", Path: filepath.Join(dir, "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Driver: "redis"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestPostgres_Integration(t *testing.T) {
	dsn := os.Getenv("DENTAL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DENTAL_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgres(ctx, dsn, 2, 1)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(ctx, "kvstore_test", []byte(`[{"id":"p1"}]`)))
	v, ok, err := s.Get(ctx, "kvstore_test")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"p1"}]`, string(v))
	require.NoError(t, s.Delete(ctx, "kvstore_test"))
}
