// Package quality decides whether a generated draft is good enough to hand back.
package quality

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/musigent/internal/logging"
	"github.com/yourorg/musigent/pkg/types"
)

// DefaultMinOriginality is the score below which a draft is rejected as repetitive.
const DefaultMinOriginality = 0.35

// Analyzer scores originality; errors mean the score is not computable.
type Analyzer interface {
	Analyze(audio []byte) (float64, error)
}

// Assessor estimates copyright risk for an audio clip.
type Assessor interface {
	Assess(ctx context.Context, audio []byte) types.CopyrightSafety
}

// Gate combines originality analysis and copyright assessment into a verdict.
type Gate struct {
	fetcher        Fetcher
	analyzer       Analyzer
	assessor       Assessor
	minOriginality float64
	logger         logrus.FieldLogger
}

// NewGate builds a gate. A zero minOriginality disables the repetition check; a
// negative one selects DefaultMinOriginality.
func NewGate(fetcher Fetcher, analyzer Analyzer, assessor Assessor, minOriginality float64, logger logrus.FieldLogger) *Gate {
	if minOriginality < 0 {
		minOriginality = DefaultMinOriginality
	}
	return &Gate{
		fetcher:        fetcher,
		analyzer:       analyzer,
		assessor:       assessor,
		minOriginality: minOriginality,
		logger:         logging.OrDiscard(logger),
	}
}

// Evaluate runs every applicable check on draft. Both originality and copyright checks
// always complete once audio exists, so the verdict carries the full picture.
func (g *Gate) Evaluate(ctx context.Context, draft types.Draft) types.QualityVerdict {
	log := g.logger.WithField("track_id", draft.TrackID)

	if !draft.HasAudio() {
		reason := "no audio was available for analysis"
		if draft.AudioError != "" {
			reason += ": " + draft.AudioError
		}
		return types.QualityVerdict{
			Approved:         false,
			OriginalityScore: nil,
			CopyrightSafety: types.CopyrightSafety{
				RiskLevel: types.RiskHigh,
				Score:     0,
				Reasons:   []string{reason},
			},
			Notes: []string{"No audio generated."},
		}
	}

	approved := true
	var notes []string

	var originality *float64
	audio, err := g.fetcher.Fetch(ctx, draft.AudioURL)
	if err != nil {
		log.WithError(err).Warn("audio fetch failed")
		audio = nil
		approved = false
		notes = append(notes, fmt.Sprintf("Originality could not be computed: %v", err))
	} else if score, aerr := g.analyzer.Analyze(audio); aerr != nil {
		log.WithError(aerr).Info("originality not computable")
		approved = false
		notes = append(notes, fmt.Sprintf("Originality could not be computed: %v", aerr))
	} else {
		originality = &score
		if score < g.minOriginality {
			approved = false
			notes = append(notes, fmt.Sprintf("Track is too repetitive (originality %.3f < %.2f).", score, g.minOriginality))
		}
	}

	safety := g.assessor.Assess(ctx, audio)
	if safety.RiskLevel == types.RiskHigh {
		approved = false
		note := "High copyright risk"
		if safety.MatchedTrack != nil {
			note += ": resembles " + *safety.MatchedTrack
		}
		notes = append(notes, note+".")
	}

	if notes == nil {
		notes = []string{}
	}
	return types.QualityVerdict{
		Approved:         approved,
		OriginalityScore: originality,
		CopyrightSafety:  safety,
		Notes:            notes,
	}
}
