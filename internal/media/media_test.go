package media

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader собирает multipart-запрос и возвращает заголовок файла
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["image"][0]
}

// pngBytes кодирует картинку 1x1
func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func TestSaveAndRemove(t *testing.T) {
	store := NewStore(t.TempDir())
	content := pngBytes(t)

	name, err := store.Save(fileHeader(t, "photo.PNG", content))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(name))

	data, err := os.ReadFile(filepath.Join(store.Dir, name))
	require.NoError(t, err)
	assert.Equal(t, content, data)

	require.NoError(t, store.Remove(name))
	_, err = os.Stat(filepath.Join(store.Dir, name))
	assert.True(t, os.IsNotExist(err))

	// повторное удаление не ошибка
	assert.NoError(t, store.Remove(name))
}

func TestSave_RejectsUnknownExtension(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Save(fileHeader(t, "script.sh", []byte("#!/bin/sh")))

	assert.ErrorIs(t, err, ErrNotImage)
}

func TestSave_RejectsNonImageContent(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Save(fileHeader(t, "photo.png", []byte("definitely not a png")))
	assert.ErrorIs(t, err, ErrNotImage)

	// на диске ничего не осталось
	_, err = os.Stat(filepath.Join(store.Dir, imageDir))
	assert.True(t, os.IsNotExist(err))
}

func TestURL(t *testing.T) {
	assert.Equal(t, "/media/posts/a.png", URL("posts/a.png"))
}
