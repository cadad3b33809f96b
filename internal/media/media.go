// Package media сохраняет загруженные изображения постов на диск.
package media

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Prefix - URL, под которым раздаются сохранённые файлы
const Prefix = "/media/"

// imageDir - подкаталог для изображений постов
const imageDir = "posts"

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// ErrNotImage - файл не является изображением поддерживаемого формата
var ErrNotImage = errors.New("not a supported image")

// Store - файловое хранилище в каталоге Dir
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Save проверяет, что файл - изображение, копирует его под новым именем
// и возвращает путь относительно Dir
func (s *Store) Save(header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("extension %q: %w", ext, ErrNotImage)
	}

	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if _, _, err := image.DecodeConfig(src); err != nil {
		return "", fmt.Errorf("decode %s: %w", header.Filename, ErrNotImage)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	dir := filepath.Join(s.Dir, imageDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := path.Join(imageDir, uuid.New().String()+ext)
	full := filepath.Join(s.Dir, filepath.FromSlash(name))
	dst, err := os.Create(full)
	if err != nil {
		return "", err
	}

	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(full)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	log.Printf("Image saved: %s", name)
	return name, nil
}

// Remove удаляет файл; отсутствующий файл не ошибка
func (s *Store) Remove(name string) error {
	clean := path.Clean("/" + name)
	err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(clean)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URL возвращает адрес файла для клиента
func URL(name string) string {
	return Prefix + strings.TrimPrefix(name, "/")
}
