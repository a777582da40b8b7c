package storage

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nattapong-dev/inventory-api/pkg/config"
)

func uploadHeader(t *testing.T, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	_, fh, err := req.FormFile("image")
	require.NoError(t, err)
	return fh
}

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(&config.UploadConfig{
		Dir:        t.TempDir(),
		MaxSizeMB:  1,
		PublicPath: "/uploads",
	})
	require.NoError(t, err)
	return store
}

func TestDiskStore_SaveImage(t *testing.T) {
	store := newTestStore(t)
	fh := uploadHeader(t, "pic.PNG", "image/png", []byte("fake image bytes"))

	ref, err := store.Save(fh)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "/uploads/"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	data, err := os.ReadFile(filepath.Join(store.Dir(), filepath.Base(ref)))
	require.NoError(t, err)
	assert.Equal(t, []byte("fake image bytes"), data)
}

func TestDiskStore_RejectsNonImage(t *testing.T) {
	store := newTestStore(t)
	fh := uploadHeader(t, "notes.txt", "text/plain", []byte("hello"))

	_, err := store.Save(fh)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestDiskStore_RejectsOversizedFile(t *testing.T) {
	store := newTestStore(t)
	fh := uploadHeader(t, "big.png", "image/png", bytes.Repeat([]byte("x"), 2*1024*1024))

	_, err := store.Save(fh)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDiskStore_UniqueNames(t *testing.T) {
	store := newTestStore(t)
	fh := uploadHeader(t, "pic.png", "image/png", []byte("a"))

	ref1, err := store.Save(fh)
	require.NoError(t, err)
	ref2, err := store.Save(fh)
	require.NoError(t, err)

	assert.NotEqual(t, ref1, ref2)
}
