// Package composer turns a generation plan into a draft track.
package composer

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/musigent/internal/generation"
	"github.com/yourorg/musigent/internal/logging"
	"github.com/yourorg/musigent/internal/planner"
	"github.com/yourorg/musigent/internal/taste"
	"github.com/yourorg/musigent/pkg/types"
)

type Composer struct {
	gen    generation.Generator
	taste  taste.Source
	logger logrus.FieldLogger

	// NewID generates track ids.
	NewID func() string
}

func New(gen generation.Generator, src taste.Source, logger logrus.FieldLogger) *Composer {
	return &Composer{
		gen:    gen,
		taste:  src,
		logger: logging.OrDiscard(logger),
		NewID:  uuid.NewString,
	}
}

// Compose never fails: generation failures are carried on the draft as AudioError.
func (c *Composer) Compose(ctx context.Context, username string, plan types.GenerationPlan) types.Draft {
	draft := types.Draft{
		TrackID:      c.NewID(),
		Style:        plan.Style,
		TempoRange:   plan.TempoRange,
		DurationSec:  plan.DurationSec,
		TasteProfile: map[string]any{},
	}
	log := c.logger.WithFields(logrus.Fields{"track_id": draft.TrackID, "mode": plan.Mode, "username": username})

	if plan.Mode == types.ModeJingle && draft.DurationSec > planner.JingleDurationSec {
		draft.DurationSec = planner.JingleDurationSec
	}

	if plan.Mode == types.ModePersona && c.taste != nil {
		profile, err := c.taste.AnalyzeUser(ctx, username)
		if err != nil {
			log.WithError(err).Warn("taste lookup failed; using empty profile")
		} else {
			for k, v := range profile {
				draft.TasteProfile[k] = v
			}
		}
	}

	res := c.gen.Generate(ctx, plan.Prompt, plan.Style, draft.DurationSec)
	if res.OK() {
		draft.AudioURL = res.URL
	} else {
		draft.AudioError = res.Failure
		log.WithField("reason", res.Failure).Warn("generation returned no audio")
	}
	return draft
}
