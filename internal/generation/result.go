// Package generation is the boundary to the third-party composition service.
package generation

import (
	"context"
	"net/url"
	"strings"
)

// Error tags used by composition backends in place of an audio URL.
const (
	TagNoCredits = "NO_CREDITS:"
	TagError     = "ERROR:"
	TagException = "EXCEPTION:"
)

// Result is either a fetchable audio URL or a failure reason, never both.
type Result struct {
	URL     string
	Failure string
}

func Success(u string) Result      { return Result{URL: u} }
func Failure(reason string) Result { return Result{Failure: reason} }

// OK reports whether the result carries audio.
func (r Result) OK() bool { return r.URL != "" }

// DecodeReference converts a raw audio reference into a Result. Anything that is not an
// absolute http(s) URL, tagged or not, is a failure carrying the reference as its reason.
func DecodeReference(ref string) Result {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Failure("empty audio reference")
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Failure(ref)
	}
	return Success(ref)
}

// Generator composes audio for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt, style string, durationSec int) Result
}
