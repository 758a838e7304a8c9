package extractor

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrExtractorUnavailable = errors.New("extractor unavailable")
	ErrContentUnavailable   = errors.New("content unavailable")
	ErrAgeRestricted        = errors.New("age restricted")
	ErrLoginRequired        = errors.New("login required")
)

// SizeExceededError is returned by FetchBest when no rendition fits the ceiling.
type SizeExceededError struct {
	Actual  int64
	Ceiling int64
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("size exceeded: %d > %d bytes", e.Actual, e.Ceiling)
}

type Rendition struct {
	Tag         string
	Width       int
	Height      int
	Ext         string
	MimeType    string
	Progressive bool
	AudioOnly   bool
	SizeBytes   *int64
}

// Selector returns the yt-dlp format selector for the rendition.
// Video-only streams are paired with the best audio track.
func (r Rendition) Selector() string {
	if r.Progressive || r.AudioOnly {
		return r.Tag
	}
	return fmt.Sprintf("%s+bestaudio[ext=m4a]/%s+bestaudio", r.Tag, r.Tag)
}

// Resolution is the short side of the frame, so vertical 1080x1920 is 1080p.
func (r Rendition) Resolution() int {
	if r.Width > 0 && r.Width < r.Height {
		return r.Width
	}
	return r.Height
}

func (r Rendition) IsMP4() bool {
	return strings.EqualFold(r.Ext, "mp4")
}

type MediaInfo struct {
	Title       string
	Thumbnail   string
	DurationSec int
	Renditions  []Rendition
}

type LocalFile struct {
	Path      string
	Width     int
	Height    int
	SizeBytes int64
}

type DownloadRequest struct {
	Format    string
	Output    string
	AudioOnly bool
	MergeMP4  bool
}
