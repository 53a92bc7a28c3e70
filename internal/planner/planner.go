// Package planner turns creative requests into generation plans.
package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yourorg/musigent/pkg/types"
)

// JingleDurationSec is the fixed length of a brand audio logo.
const JingleDurationSec = 5

// ErrInvalidSurvey is returned when a jingle survey lacks required fields.
var ErrInvalidSurvey = errors.New("invalid jingle survey")

type modeDefaults struct {
	style string
	tempo types.TempoRange
}

var defaults = map[types.Mode]modeDefaults{
	types.ModeJingle:  {style: "short, catchy", tempo: types.BPM(100, 130)},
	types.ModeBGM:     {style: "ambient, no-vocals", tempo: types.BPM(60, 90)},
	types.ModePersona: {style: "based-on-user-taste", tempo: types.BPM(70, 120)},
	types.ModeOther:   {style: "generic", tempo: types.BPM(60, 120)},
}

// Plan builds a plan for a generic request. Unknown modes are planned as ModeOther.
func Plan(mode types.Mode, prompt string, durationSec int) types.GenerationPlan {
	d, ok := defaults[mode]
	if !ok {
		mode = types.ModeOther
		d = defaults[types.ModeOther]
	}
	if durationSec < 0 {
		durationSec = 0
	}
	return types.GenerationPlan{
		Mode:        mode,
		Prompt:      prompt,
		DurationSec: durationSec,
		Style:       d.style,
		TempoRange:  d.tempo,
	}
}

// JinglePlan converts a brand survey into a jingle plan.
func JinglePlan(s types.JingleSurvey) (types.GenerationPlan, error) {
	brand := strings.TrimSpace(s.BrandName)
	if brand == "" {
		return types.GenerationPlan{}, fmt.Errorf("%w: brand_name is required", ErrInvalidSurvey)
	}

	var style string
	var tempo types.TempoRange
	switch strings.ToLower(strings.TrimSpace(s.Vibe)) {
	case "energetic":
		style, tempo = "high-energy, punchy, modern", types.TempoTag("140-160 BPM")
	case "peaceful":
		style, tempo = "soft, calm, warm", types.TempoTag("70-90 BPM")
	default:
		style, tempo = "balanced, catchy, neutral", types.TempoTag("100-120 BPM")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a %d-second audio logo (jingle) for the brand '%s'. ", JingleDurationSec, brand)
	if field := strings.TrimSpace(s.CompanyField); field != "" {
		fmt.Fprintf(&b, "The company works in %s. ", field)
	}
	if persona := strings.TrimSpace(s.CustomerPersona); persona != "" {
		fmt.Fprintf(&b, "Target customers: %s. ", persona)
	}
	fmt.Fprintf(&b, "The jingle should be %s, memorable, and copyright-safe, ", style)
	b.WriteString("without vocals, only instruments and sound design, suitable as a brand audio logo.")

	return types.GenerationPlan{
		Mode:        types.ModeJingle,
		Prompt:      b.String(),
		DurationSec: JingleDurationSec,
		Style:       style,
		TempoRange:  tempo,
	}, nil
}
