package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const publicDir = "public"

var (
	ErrNotFound = os.ErrNotExist

	nameRe = regexp.MustCompile(`^[0-9a-f]{32}\.[a-z0-9]{2,5}$`)
)

// Store отдаёт крупные файлы по ссылке {baseURL}/video/{name} и удаляет их по TTL.
type Store struct {
	dir     string
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

func New(dir, baseURL string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, publicDir), 0o755); err != nil {
		return nil, fmt.Errorf("create public dir: %w", err)
	}
	return &Store{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Publish переносит файл в публичный каталог под случайным именем.
// Файл удаляется через ttl; после рестарта его подчистит Sweep.
func (s *Store) Publish(_ context.Context, path string, ttl time.Duration) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		ext = "mp4"
	}
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
	target := filepath.Join(s.dir, publicDir, name)

	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("move artifact: %w", err)
	}

	time.AfterFunc(ttl, func() { s.remove(target) })
	return s.baseURL + "/video/" + name, nil
}

// Open открывает опубликованный файл. Имена вне формата Publish не принимаются.
func (s *Store) Open(name string) (*os.File, error) {
	if !nameRe.MatchString(name) {
		return nil, ErrNotFound
	}
	return os.Open(filepath.Join(s.dir, publicDir, name))
}

// Sweep удаляет файлы старше maxAge из рабочего и публичного каталогов.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	removed := 0

	for _, dir := range []string{s.dir, filepath.Join(s.dir, publicDir)} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if s.remove(filepath.Join(dir, entry.Name())) {
				removed++
			}
		}
	}
	return removed, nil
}

func (s *Store) remove(path string) bool {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove file", "name", filepath.Base(path), "error", err)
	}
	return err == nil
}
