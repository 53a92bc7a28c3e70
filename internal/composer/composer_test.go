package composer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/musigent/internal/generation"
	"github.com/yourorg/musigent/internal/planner"
	"github.com/yourorg/musigent/internal/taste"
	"github.com/yourorg/musigent/pkg/types"
)

type recordingGenerator struct {
	duration int
	result   generation.Result
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt, style string, durationSec int) generation.Result {
	g.duration = durationSec
	return g.result
}

type failingTaste struct{}

func (failingTaste) AnalyzeUser(ctx context.Context, userID string) (taste.Profile, error) {
	return nil, errors.New("spotify down")
}

func TestComposeClampsGenericJingle(t *testing.T) {
	gen := &recordingGenerator{result: generation.Success("https://cdn.example.com/j.mp3")}
	c := New(gen, taste.MockSource{}, nil)

	d := c.Compose(context.Background(), "alice", planner.Plan(types.ModeJingle, "logo", 30))
	assert.Equal(t, 5, gen.duration)
	assert.Equal(t, 5, d.DurationSec)
	assert.Equal(t, "https://cdn.example.com/j.mp3", d.AudioURL)
	assert.Empty(t, d.AudioError)
	assert.Empty(t, d.TasteProfile)
	_, err := uuid.Parse(d.TrackID)
	assert.NoError(t, err)
}

func TestComposeKeepsShortJingleAndLongBGM(t *testing.T) {
	gen := &recordingGenerator{result: generation.Success("https://cdn.example.com/a.mp3")}
	c := New(gen, nil, nil)

	c.Compose(context.Background(), "alice", planner.Plan(types.ModeJingle, "logo", 3))
	assert.Equal(t, 3, gen.duration)
	c.Compose(context.Background(), "alice", planner.Plan(types.ModeBGM, "pads", 120))
	assert.Equal(t, 120, gen.duration)
}

func TestComposePersonaUsesTaste(t *testing.T) {
	gen := &recordingGenerator{result: generation.Success("https://cdn.example.com/p.mp3")}
	c := New(gen, taste.MockSource{}, nil)

	d := c.Compose(context.Background(), "alice", planner.Plan(types.ModePersona, "for me", 30))
	assert.Equal(t, 0.7, d.TasteProfile["energy"])
}

func TestComposePersonaTasteFailureDegrades(t *testing.T) {
	gen := &recordingGenerator{result: generation.Success("https://cdn.example.com/p.mp3")}
	c := New(gen, failingTaste{}, nil)

	d := c.Compose(context.Background(), "alice", planner.Plan(types.ModePersona, "for me", 30))
	assert.NotNil(t, d.TasteProfile)
	assert.Empty(t, d.TasteProfile)
	assert.True(t, d.HasAudio())
}

func TestComposeCarriesGenerationFailure(t *testing.T) {
	gen := &recordingGenerator{result: generation.Failure("NO_CREDITS: balance 0")}
	c := New(gen, nil, nil)
	c.NewID = func() string { return "fixed" }

	d := c.Compose(context.Background(), "alice", planner.Plan(types.ModeBGM, "pads", 30))
	require.False(t, d.HasAudio())
	assert.Equal(t, "fixed", d.TrackID)
	assert.Equal(t, "NO_CREDITS: balance 0", d.AudioError)
}
