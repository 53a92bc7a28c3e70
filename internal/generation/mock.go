package generation

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// MockGenerator returns deterministic placeholder URLs without calling any service.
type MockGenerator struct {
	BaseURL string
}

func (m MockGenerator) Generate(ctx context.Context, prompt, style string, durationSec int) Result {
	base := m.BaseURL
	if base == "" {
		base = "https://example.com/mock_suno"
	}
	safe := strings.ReplaceAll(prompt, " ", "_")
	if r := []rune(safe); len(r) > 40 {
		safe = string(r[:40])
	}
	return DecodeReference(fmt.Sprintf("%s/%s_%d.mp3", strings.TrimRight(base, "/"), url.PathEscape(safe), durationSec))
}
