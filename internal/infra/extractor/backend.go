package extractor

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/lrstanley/go-ytdlp"
)

// Backend runs the external yt-dlp process.
type Backend interface {
	DumpJSON(ctx context.Context, url string) ([]byte, error)
	Download(ctx context.Context, url string, req DownloadRequest) error
	Version(ctx context.Context) (string, error)
}

type cliBackend struct {
	binary string
}

// NewCLIBackend creates a backend on top of the yt-dlp binary.
// Empty binary means resolving yt-dlp from PATH.
func NewCLIBackend(binary string) Backend {
	return &cliBackend{binary: binary}
}

func (b *cliBackend) command() *ytdlp.Command {
	cmd := ytdlp.New().
		NoPlaylist().
		NoProgress()
	if b.binary != "" {
		cmd = cmd.SetExecutable(b.binary)
	}
	return cmd
}

func (b *cliBackend) DumpJSON(ctx context.Context, url string) ([]byte, error) {
	res, err := b.command().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		return nil, withStderr(res, err)
	}
	return []byte(res.Stdout), nil
}

func (b *cliBackend) Download(ctx context.Context, url string, req DownloadRequest) error {
	cmd := b.command().
		RestrictFilenames().
		Format(req.Format).
		Output(req.Output)
	if req.MergeMP4 {
		cmd = cmd.MergeOutputFormat("mp4")
	}
	if req.AudioOnly {
		cmd = cmd.ExtractAudio().AudioFormat("mp3")
	}

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return withStderr(res, err)
	}
	return nil
}

func (b *cliBackend) Version(ctx context.Context) (string, error) {
	res, err := b.command().Version(ctx)
	if err != nil {
		return "", withStderr(res, err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// withStderr attaches the tail of yt-dlp stderr, the only place where
// the reason of a failure is spelled out.
func withStderr(res *ytdlp.Result, err error) error {
	if res == nil || strings.TrimSpace(res.Stderr) == "" {
		return err
	}

	lines := strings.Split(strings.TrimSpace(res.Stderr), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return errors.Wrap(err, strings.Join(lines, "; "))
}
