package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode is the kind of creative request.
type Mode string

const (
	ModeJingle  Mode = "jingle"
	ModeBGM     Mode = "bgm"
	ModePersona Mode = "persona"
	ModeOther   Mode = "other"
)

// ParseMode maps free-form input onto a known mode; unknown values become ModeOther.
func ParseMode(s string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeJingle, ModeBGM, ModePersona:
		return m
	default:
		return ModeOther
	}
}

// TempoRange is either a numeric BPM pair or a descriptive tag such as "140-160 BPM".
// It serializes as [min, max] or as a plain string.
type TempoRange struct {
	Min int
	Max int
	Tag string
}

// BPM returns a numeric tempo range.
func BPM(min, max int) TempoRange {
	return TempoRange{Min: min, Max: max}
}

// TempoTag returns a descriptive tempo range.
func TempoTag(tag string) TempoRange {
	return TempoRange{Tag: tag}
}

func (t TempoRange) String() string {
	if t.Tag != "" {
		return t.Tag
	}
	return fmt.Sprintf("%d-%d BPM", t.Min, t.Max)
}

func (t TempoRange) MarshalJSON() ([]byte, error) {
	if t.Tag != "" {
		return json.Marshal(t.Tag)
	}
	return json.Marshal([2]int{t.Min, t.Max})
}

func (t *TempoRange) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		*t = TempoRange{Tag: tag}
		return nil
	}
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("tempo_range: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("tempo_range: expected 2 values, got %d", len(pair))
	}
	*t = TempoRange{Min: pair[0], Max: pair[1]}
	return nil
}

// GenerationPlan is produced by the planning step and is not modified downstream.
type GenerationPlan struct {
	Mode        Mode       `json:"mode"`
	Prompt      string     `json:"prompt"`
	DurationSec int        `json:"duration_sec"`
	Style       string     `json:"style"`
	TempoRange  TempoRange `json:"tempo_range"`
}

// JingleSurvey is the structured brief behind a jingle request.
type JingleSurvey struct {
	BrandName       string `json:"brand_name"`
	CompanyField    string `json:"company_field"`
	CustomerPersona string `json:"customer_persona"`
	Vibe            string `json:"vibe"`
}
