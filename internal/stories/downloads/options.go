package downloads

import (
	"sort"
	"strconv"
	"time"

	"github.com/samber/lo"

	"grabber-bot/internal/infra/extractor"
	"grabber-bot/internal/stories/entitlement"
	"grabber-bot/internal/stories/platform"
)

// ChoiceAudio значение выбора «только звук».
const ChoiceAudio = "audio"

// Option один вариант на клавиатуре выбора качества.
type Option struct {
	Choice     string
	Resolution int
	// SizeBytes оценка итогового размера, nil если неизвестна.
	SizeBytes *int64
	Audio     bool
	Rendition extractor.Rendition
	Gate      entitlement.Reason
}

func (o Option) Allowed() bool {
	return o.Gate == entitlement.Allowed
}

// Selection ожидающий выбор качества для YouTube.
type Selection struct {
	ID            string
	UserID        int64
	ChatID        int64
	URL           string
	Platform      platform.Platform
	Title         string
	MaxResolution int
	Options       []Option
	CreatedAt     time.Time
}

func (s *Selection) Find(choice string) (Option, bool) {
	return lo.Find(s.Options, func(o Option) bool { return o.Choice == choice })
}

// BuildOptions оставляет по одному варианту на разрешение из
// entitlement.Resolutions, предпочитая progressive, и добавляет «только звук».
func BuildOptions(info *extractor.MediaInfo, limits entitlement.Limits) []Option {
	audioSize := bestAudioSize(info.Renditions)
	best := bestPerResolution(info.Renditions)
	maxRes := lo.Max(lo.Keys(best))

	options := make([]Option, 0, len(best)+1)
	for res, r := range best {
		size := r.SizeBytes
		if size != nil && !r.Progressive && audioSize != nil {
			size = lo.ToPtr(*size + *audioSize)
		}
		options = append(options, Option{
			Choice:     r.Tag,
			Resolution: res,
			SizeBytes:  size,
			Rendition:  r,
			Gate:       entitlement.Gate(limits, res, size, maxRes),
		})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Resolution < options[j].Resolution })

	return append(options, Option{
		Choice:    ChoiceAudio,
		Audio:     true,
		SizeBytes: audioSize,
		Gate:      entitlement.Allowed,
	})
}

// MaxResolution наибольшее из разрешений, которые попадут на клавиатуру.
// Нестандартные высоты (540p, 1440p) не учитываются.
func MaxResolution(info *extractor.MediaInfo) int {
	return lo.Max(lo.Keys(bestPerResolution(info.Renditions)))
}

func bestPerResolution(renditions []extractor.Rendition) map[int]extractor.Rendition {
	best := map[int]extractor.Rendition{}
	for _, r := range renditions {
		res := r.Resolution()
		if r.AudioOnly || !lo.Contains(entitlement.Resolutions, res) {
			continue
		}
		if cur, ok := best[res]; !ok || better(r, cur) {
			best[res] = r
		}
	}
	return best
}

// better: progressive, затем mp4, затем с известным размером.
func better(a, b extractor.Rendition) bool {
	score := func(r extractor.Rendition) int {
		s := 0
		if r.Progressive {
			s += 4
		}
		if r.IsMP4() {
			s += 2
		}
		if r.SizeBytes != nil {
			s++
		}
		return s
	}
	return score(a) > score(b)
}

func bestAudioSize(renditions []extractor.Rendition) *int64 {
	audio := lo.Filter(renditions, func(r extractor.Rendition, _ int) bool {
		return r.AudioOnly && r.SizeBytes != nil
	})
	if len(audio) == 0 {
		return nil
	}
	top := lo.MaxBy(audio, func(a, b extractor.Rendition) bool { return *a.SizeBytes > *b.SizeBytes })
	return top.SizeBytes
}

func (o Option) Label() string {
	if o.Audio {
		return "🎵"
	}
	return strconv.Itoa(o.Resolution) + "p"
}
