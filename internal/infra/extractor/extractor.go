package extractor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 5 * time.Second
)

type Extractor struct {
	backend  Backend
	dir      string
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
	newID    func() string
}

type Option func(*Extractor)

func WithBackend(b Backend) Option {
	return func(e *Extractor) {
		e.backend = b
	}
}

func WithAttempts(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.attempts = n
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.backoff = d
		}
	}
}

// New creates the extractor adapter. Artifacts are written into dir.
func New(dir string, logger *slog.Logger, opts ...Option) (*Extractor, error) {
	e := &Extractor{
		backend:  NewCLIBackend(""),
		dir:      dir,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		logger:   logger,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create download dir")
	}

	return e, nil
}

func (e *Extractor) Dir() string {
	return e.dir
}

// Probe reads metadata and the list of renditions without downloading.
func (e *Extractor) Probe(ctx context.Context, url string) (*MediaInfo, error) {
	var info *MediaInfo
	err := e.withRetry(ctx, "probe", url, func(ctx context.Context) error {
		raw, err := e.backend.DumpJSON(ctx, url)
		if err != nil {
			return err
		}
		info, err = parseInfo(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// FetchByTag downloads one specific rendition.
func (e *Extractor) FetchByTag(ctx context.Context, url string, r Rendition) (*LocalFile, error) {
	file, err := e.download(ctx, url, DownloadRequest{
		Format:   r.Selector(),
		MergeMP4: !r.Progressive && !r.AudioOnly,
	})
	if err != nil {
		return nil, err
	}
	file.Width, file.Height = r.Width, r.Height
	return file, nil
}

// FetchBest downloads the highest progressive mp4 rendition whose real size
// fits into ceiling. Renditions with a known size above the ceiling are skipped
// without downloading.
func (e *Extractor) FetchBest(ctx context.Context, url string, ceiling int64) (*LocalFile, error) {
	info, err := e.Probe(ctx, url)
	if err != nil {
		return nil, err
	}
	return e.FetchBestOf(ctx, url, info, ceiling)
}

// FetchBestOf is FetchBest over an already probed info.
func (e *Extractor) FetchBestOf(ctx context.Context, url string, info *MediaInfo, ceiling int64) (*LocalFile, error) {
	candidates := progressiveMP4(info.Renditions)
	if len(candidates) == 0 {
		// Сайт не отдал список форматов: пусть yt-dlp выберет сам.
		candidates = []Rendition{{Tag: "best[ext=mp4]/best", Progressive: true}}
	}

	var smallest int64
	exceeded := func(size int64) {
		if smallest == 0 || size < smallest {
			smallest = size
		}
	}

	for _, r := range candidates {
		if r.SizeBytes != nil && *r.SizeBytes > ceiling {
			exceeded(*r.SizeBytes)
			continue
		}

		file, err := e.FetchByTag(ctx, url, r)
		if err != nil {
			return nil, err
		}
		if file.SizeBytes > ceiling {
			exceeded(file.SizeBytes)
			e.remove(file.Path)
			continue
		}
		return file, nil
	}

	return nil, &SizeExceededError{Actual: smallest, Ceiling: ceiling}
}

// FetchAudio downloads the audio track as mp3.
func (e *Extractor) FetchAudio(ctx context.Context, url string) (*LocalFile, error) {
	return e.download(ctx, url, DownloadRequest{
		Format:    "bestaudio/best",
		AudioOnly: true,
	})
}

// Healthy checks that the yt-dlp binary can be executed.
func (e *Extractor) Healthy(ctx context.Context) (string, error) {
	version, err := e.backend.Version(ctx)
	if err != nil {
		return "", classify(err)
	}
	return version, nil
}

func (e *Extractor) download(ctx context.Context, url string, req DownloadRequest) (*LocalFile, error) {
	id := e.newID()
	req.Output = filepath.Join(e.dir, id+".%(ext)s")

	err := e.withRetry(ctx, "download", url, func(ctx context.Context) error {
		return e.backend.Download(ctx, url, req)
	})
	if err != nil {
		e.removeByID(id)
		return nil, err
	}

	path, err := e.findOutput(id)
	if err != nil {
		e.removeByID(id)
		return nil, err
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat artifact")
	}

	return &LocalFile{Path: path, SizeBytes: st.Size()}, nil
}

func (e *Extractor) withRetry(ctx context.Context, op, url string, fn func(ctx context.Context) error) error {
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(e.attempts-1), retry.NewExponential(e.backoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := classify(fn(ctx))
		if err == nil {
			return nil
		}
		if IsTerminal(err) {
			return err
		}

		e.logger.Warn("extractor attempt failed",
			"op", op,
			"url", url,
			"attempt", attempt,
			"error", err)
		return retry.RetryableError(err)
	})
}

func (e *Extractor) findOutput(id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(e.dir, id+".*"))
	if err != nil {
		return "", errors.Wrap(err, "glob artifact")
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") || strings.Contains(m, ".temp") {
			continue
		}
		return m, nil
	}
	return "", errors.Errorf("artifact %s not found in %s", id, e.dir)
}

func (e *Extractor) removeByID(id string) {
	matches, _ := filepath.Glob(filepath.Join(e.dir, id+".*"))
	for _, m := range matches {
		e.remove(m)
	}
}

func (e *Extractor) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		e.logger.Warn("failed to remove artifact", "path", path, "error", err)
	}
}
