package evidence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectNames(t *testing.T) {
	assert.Equal(t, "incidentes/report.pdf.enc", ObjectName("report.pdf"))
	assert.Equal(t, "report.pdf", DownloadName("incidentes/report.pdf.enc"))

	// Path components in the upload name are discarded
	assert.Equal(t, "incidentes/passwd.enc", ObjectName("../../etc/passwd"))
}

func TestFSStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "incidentes/a.enc", []byte("ciphertext")))

	got, err := s.Get(ctx, "incidentes/a.enc")
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), got)

	require.NoError(t, s.Delete(ctx, "incidentes/a.enc"))
	_, err = s.Get(ctx, "incidentes/a.enc")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "incidentes/a.enc"), ErrObjectNotFound)
}

func TestFSStore_NamesCannotEscapeRoot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFSStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "incidentes/../../outside.enc", []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "outside.enc", entries[0].Name())
	assert.NoFileExists(t, filepath.Join(dir, "..", "outside.enc"))
}

func TestProxy_UploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	cipher, err := NewCipher(testKey)
	require.NoError(t, err)
	proxy := NewProxy(cipher, store)

	payload := []byte("PDF bytes of the incident evidence")
	name, err := proxy.Upload(ctx, "evidencia.pdf", payload)
	require.NoError(t, err)
	assert.Equal(t, "incidentes/evidencia.pdf.enc", name)

	// The blob at rest is ciphertext, not the payload
	raw, err := store.Get(ctx, name)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "incident evidence")

	got, err := proxy.Download(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestProxy_DownloadMissingObject(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	cipher, err := NewCipher(testKey)
	require.NoError(t, err)

	_, err = NewProxy(cipher, store).Download(ctx, "incidentes/ghost.enc")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
