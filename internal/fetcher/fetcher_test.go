package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheme(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"data/sectors.json", "file"},
		{"/abs/path.csv", "file"},
		{"file:///tmp/x.json", "file"},
		{"https://example.org/Sector.json", "https"},
		{"HTTP://example.org/x", "http"},
		{"ftp://ftp.example.org/x.csv", "ftp"},
		{`C:\data\sectors.xlsx`, "file"},
		{"s3://bucket/key", "s3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Scheme(tt.source), "source: %q", tt.source)
	}
}

func TestOpener_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.txt")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o644))

	o := &Opener{}
	rc, err := o.Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "local", string(data))

	_, err = o.Open(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestOpener_UnsupportedScheme(t *testing.T) {
	o := &Opener{}
	_, err := o.Open(context.Background(), "s3://bucket/key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")

	_, err = o.Open(context.Background(), "https://example.org/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no http fetcher")
}

func TestOpener_ToLocalFile_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote bytes"))
	}))
	defer srv.Close()

	o := NewOpener(HTTPOptions{MaxRetries: 1}, FTPOptions{})
	path, cleanup, err := o.ToLocalFile(context.Background(), srv.URL+"/sectors.xlsx", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "remote bytes", string(data))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpener_ToLocalFile_Local(t *testing.T) {
	o := &Opener{}
	path, cleanup, err := o.ToLocalFile(context.Background(), "file:///tmp/a.xlsx", "")
	require.NoError(t, err)
	cleanup()
	assert.Equal(t, "/tmp/a.xlsx", path)
}
