package extractor

import (
	"context"
	"os/exec"
	"strings"

	"github.com/go-faster/errors"
)

var terminalRules = []struct {
	target  error
	needles []string
}{
	{ErrExtractorUnavailable, []string{"executable file not found", "unable to resolve", "no such file or directory: 'yt-dlp'"}},
	{ErrAgeRestricted, []string{"age-restricted", "age restricted", "confirm your age", "inappropriate for some users"}},
	{ErrLoginRequired, []string{"login required", "log in", "sign in", "--cookies", "login_required", "private account"}},
	{ErrContentUnavailable, []string{
		"video unavailable", "private video", "has been removed", "is not available",
		"isn't available", "no longer available",
		"unsupported url", "does not exist", "http error 404", "no video formats found",
		"requested format is not available",
	}},
}

// classify maps a raw backend failure to one of the terminal errors or
// leaves it as is, which means it is worth retrying.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, exec.ErrNotFound) {
		return errors.Wrap(ErrExtractorUnavailable, err.Error())
	}

	text := strings.ToLower(err.Error())
	for _, rule := range terminalRules {
		for _, needle := range rule.needles {
			if strings.Contains(text, needle) {
				return errors.Wrap(rule.target, err.Error())
			}
		}
	}

	return err
}

// IsTerminal reports whether retrying err makes no sense.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrExtractorUnavailable) ||
		errors.Is(err, ErrAgeRestricted) ||
		errors.Is(err, ErrLoginRequired) ||
		errors.Is(err, ErrContentUnavailable) ||
		errors.Is(err, context.Canceled)
}
