package planner

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/musigent/pkg/types"
)

func TestPlanModes(t *testing.T) {
	cases := []struct {
		mode  types.Mode
		style string
		tempo types.TempoRange
	}{
		{types.ModeJingle, "short, catchy", types.BPM(100, 130)},
		{types.ModeBGM, "ambient, no-vocals", types.BPM(60, 90)},
		{types.ModePersona, "based-on-user-taste", types.BPM(70, 120)},
		{types.ModeOther, "generic", types.BPM(60, 120)},
		{types.Mode("lullaby"), "generic", types.BPM(60, 120)},
	}
	for _, tc := range cases {
		p := Plan(tc.mode, "calm piano", 30)
		assert.Equal(t, tc.style, p.Style, tc.mode)
		assert.Equal(t, tc.tempo, p.TempoRange, tc.mode)
		assert.Equal(t, 30, p.DurationSec)
		assert.Equal(t, "calm piano", p.Prompt)
	}
	assert.Equal(t, types.ModeOther, Plan("lullaby", "", 1).Mode)
}

func TestPlanClampsNegativeDuration(t *testing.T) {
	assert.Equal(t, 0, Plan(types.ModeBGM, "x", -10).DurationSec)
}

func TestJinglePlanVibes(t *testing.T) {
	cases := map[string]struct {
		style string
		tempo string
	}{
		"energetic": {"high-energy, punchy, modern", "140-160 BPM"},
		"Peaceful":  {"soft, calm, warm", "70-90 BPM"},
		"standard":  {"balanced, catchy, neutral", "100-120 BPM"},
		"":          {"balanced, catchy, neutral", "100-120 BPM"},
	}
	for vibe, want := range cases {
		p, err := JinglePlan(types.JingleSurvey{BrandName: "Acme", CompanyField: "coffee", CustomerPersona: "students", Vibe: vibe})
		require.NoError(t, err)
		assert.Equal(t, types.ModeJingle, p.Mode)
		assert.Equal(t, JingleDurationSec, p.DurationSec)
		assert.Equal(t, want.style, p.Style, vibe)
		assert.Equal(t, want.tempo, p.TempoRange.String(), vibe)
	}
}

func TestJinglePlanPrompt(t *testing.T) {
	p, err := JinglePlan(types.JingleSurvey{BrandName: " Acme ", CompanyField: "coffee", CustomerPersona: "night owls", Vibe: "energetic"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.Prompt, "Create a 5-second audio logo (jingle) for the brand 'Acme'."))
	assert.Contains(t, p.Prompt, "The company works in coffee.")
	assert.Contains(t, p.Prompt, "Target customers: night owls.")
	assert.Contains(t, p.Prompt, "without vocals")
}

func TestJinglePlanRequiresBrand(t *testing.T) {
	_, err := JinglePlan(types.JingleSurvey{BrandName: "  ", Vibe: "energetic"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSurvey))
}
