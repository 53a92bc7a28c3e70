// Package recognition folds external fingerprint matching into a copyright-risk score.
package recognition

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/musigent/internal/logging"
	"github.com/yourorg/musigent/pkg/types"
)

const (
	DefaultBaseline = 70
	matchCeiling    = 25
)

// Match identifies a recognized existing recording.
type Match struct {
	Artist string
	Title  string
}

func (m Match) String() string {
	return m.Artist + " - " + m.Title
}

// Recognizer looks up an audio clip in a fingerprint database.
// A nil match with a nil error means nothing was recognized.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) (*Match, error)
}

// Adapter turns recognition outcomes into a CopyrightSafety assessment.
// It never fails: missing capability and upstream errors keep the baseline score.
type Adapter struct {
	recognizer Recognizer
	baseline   int
	timeout    time.Duration
	logger     logrus.FieldLogger
}

// NewAdapter builds an adapter. A nil recognizer means no credential is configured.
func NewAdapter(r Recognizer, baseline int, timeout time.Duration, logger logrus.FieldLogger) *Adapter {
	if baseline <= 0 {
		baseline = DefaultBaseline
	}
	return &Adapter{recognizer: r, baseline: baseline, timeout: timeout, logger: logging.OrDiscard(logger)}
}

// Assess scores the copyright risk of audio.
func (a *Adapter) Assess(ctx context.Context, audio []byte) types.CopyrightSafety {
	score := a.baseline
	reasons := []string{"baseline heuristic applied"}
	var matched *string

	switch {
	case a.recognizer == nil:
		reasons = append(reasons, "recognition service not configured; baseline kept")
	case len(audio) == 0:
		reasons = append(reasons, "no audio stream available for recognition; baseline kept")
	default:
		match, err := a.recognize(ctx, audio)
		switch {
		case err != nil:
			a.logger.WithError(err).Warn("recognition failed, keeping baseline")
			reasons = append(reasons, fmt.Sprintf("recognition failed (%v); baseline kept", err))
		case match != nil:
			if score > matchCeiling {
				score = matchCeiling
			}
			m := match.String()
			matched = &m
			reasons = append(reasons, "matched existing track: "+m)
		default:
			reasons = append(reasons, "no matching track found")
		}
	}

	return types.CopyrightSafety{
		RiskLevel:    RiskTier(score),
		Score:        score,
		MatchedTrack: matched,
		Reasons:      reasons,
	}
}

func (a *Adapter) recognize(ctx context.Context, audio []byte) (*Match, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.recognizer.Recognize(ctx, audio)
}

// RiskTier maps a 0-100 safety score onto low (>=80), medium (50-79) or high (<50).
func RiskTier(score int) string {
	switch {
	case score >= 80:
		return types.RiskLow
	case score >= 50:
		return types.RiskMedium
	default:
		return types.RiskHigh
	}
}
