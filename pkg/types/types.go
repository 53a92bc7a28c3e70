package types

// Draft is one generated track awaiting evaluation.
// AudioURL is empty when generation produced no fetchable audio; AudioError then carries the reason.
type Draft struct {
	TrackID      string         `json:"track_id"`
	AudioURL     string         `json:"audio_url"`
	AudioError   string         `json:"audio_error,omitempty"`
	Style        string         `json:"style"`
	TempoRange   TempoRange     `json:"tempo_range"`
	DurationSec  int            `json:"duration_sec"`
	TasteProfile map[string]any `json:"taste_profile"`
}

// HasAudio reports whether the draft references fetchable audio.
func (d *Draft) HasAudio() bool {
	return d != nil && d.AudioURL != ""
}

// Risk tiers for copyright exposure.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// CopyrightSafety is the recognition-based copyright assessment.
type CopyrightSafety struct {
	RiskLevel    string   `json:"risk_level"`
	Score        int      `json:"copyright_safety_score"`
	MatchedTrack *string  `json:"matched_track"`
	Reasons      []string `json:"reasons"`
}

// QualityVerdict is the quality gate decision.
// OriginalityScore is nil when originality could not be computed.
type QualityVerdict struct {
	Approved         bool            `json:"approved"`
	OriginalityScore *float64        `json:"originality_score"`
	CopyrightSafety  CopyrightSafety `json:"copyright_safety"`
	Notes            []string        `json:"notes"`
}

// TimeInfo reports when a request was served.
type TimeInfo struct {
	Status           string `json:"status"`
	UTCTime          string `json:"utc_time"`
	DetectedTimezone string `json:"detected_timezone,omitempty"`
}

// Interaction is one persisted pipeline run.
type Interaction struct {
	TimestampUTC string         `json:"timestamp_utc"`
	Username     string         `json:"username"`
	Plan         GenerationPlan `json:"plan"`
	Draft        Draft          `json:"draft"`
	Verdict      QualityVerdict `json:"evaluation"`
	TimeInfo     TimeInfo       `json:"time_info"`
}

// Result is what the pipeline hands to the presentation layer.
type Result struct {
	Plan     GenerationPlan `json:"plan"`
	Draft    Draft          `json:"draft"`
	Verdict  QualityVerdict `json:"evaluation"`
	TimeInfo TimeInfo       `json:"time_info"`
}
