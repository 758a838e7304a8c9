package extractor

import (
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/goccy/go-json"
	"github.com/samber/lo"
)

type rawFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Width          *int     `json:"width"`
	Height         *int     `json:"height"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
	Filesize       *float64 `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
	FormatNote     string   `json:"format_note"`
}

type rawInfo struct {
	rawFormat
	Title     string      `json:"title"`
	Thumbnail string      `json:"thumbnail"`
	Duration  *float64    `json:"duration"`
	Formats   []rawFormat `json:"formats"`
}

func parseInfo(data []byte) (*MediaInfo, error) {
	var raw rawInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode yt-dlp info")
	}

	formats := raw.Formats
	if len(formats) == 0 && raw.FormatID != "" {
		formats = []rawFormat{raw.rawFormat}
	}

	info := &MediaInfo{
		Title:     raw.Title,
		Thumbnail: raw.Thumbnail,
	}
	if raw.Duration != nil {
		info.DurationSec = int(*raw.Duration)
	}

	for _, f := range formats {
		if f.FormatID == "" || f.Ext == "mhtml" || strings.Contains(f.FormatNote, "storyboard") {
			continue
		}
		info.Renditions = append(info.Renditions, f.toRendition())
	}

	return info, nil
}

func (f rawFormat) toRendition() Rendition {
	width, height := lo.FromPtr(f.Width), lo.FromPtr(f.Height)
	hasVideo := f.VCodec != "none" && (f.VCodec != "" || height > 0)
	hasAudio := f.ACodec != "none"

	r := Rendition{
		Tag:         f.FormatID,
		Width:       width,
		Height:      height,
		Ext:         f.Ext,
		Progressive: hasVideo && hasAudio,
		AudioOnly:   !hasVideo && hasAudio,
	}

	switch {
	case r.AudioOnly:
		r.MimeType = "audio/" + f.Ext
	default:
		r.MimeType = "video/" + f.Ext
	}

	size := f.Filesize
	if size == nil {
		size = f.FilesizeApprox
	}
	if size != nil && *size > 0 {
		r.SizeBytes = lo.ToPtr(int64(*size))
	}

	return r
}

// progressiveMP4 returns progressive mp4 renditions ordered from the highest resolution.
func progressiveMP4(renditions []Rendition) []Rendition {
	candidates := lo.Filter(renditions, func(r Rendition, _ int) bool {
		return r.Progressive && r.IsMP4()
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Height > candidates[j].Height
	})
	return candidates
}
