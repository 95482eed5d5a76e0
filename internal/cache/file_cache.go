// Package cache keeps JSON-encoded results on disk so a rerun skips images
// that were already reduced.
package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Entry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

type Service[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
	Key(params ...interface{}) string
}

// FileCache stores one file per key under dir. Entries whose checksum no
// longer matches their data are treated as misses.
type FileCache[T any] struct {
	dir string
}

func NewFileCache[T any](root, subDir string) *FileCache[T] {
	return &FileCache[T]{dir: filepath.Join(root, "data", "cache", subDir)}
}

func (fc *FileCache[T]) Dir() string { return fc.dir }

func (fc *FileCache[T]) Key(params ...interface{}) string {
	var keyData string
	for _, param := range params {
		keyData += fmt.Sprintf("%v_", param)
	}
	h := sha1.New()
	h.Write([]byte(keyData))
	return hex.EncodeToString(h.Sum(nil))
}

func (fc *FileCache[T]) Get(key string) (T, bool) {
	var zero T
	data, err := os.ReadFile(fc.file(key))
	if err != nil {
		return zero, false
	}

	var entry Entry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		return zero, false
	}
	if entry.Checksum != checksum(entry.Data) {
		return zero, false
	}
	return entry.Data, true
}

func (fc *FileCache[T]) Set(key string, data T) error {
	if err := os.MkdirAll(fc.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	raw, err := json.Marshal(Entry[T]{
		Data:      data,
		CreatedAt: time.Now(),
		Checksum:  checksum(data),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	path := fc.file(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}
	return nil
}

func (fc *FileCache[T]) file(key string) string {
	return filepath.Join(fc.dir, key+".json")
}

func checksum[T any](data T) string {
	raw, _ := json.Marshal(data)
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])
}
