// Package timeinfo reports the UTC time a request was served, with optional
// timezone detection through an IP geolocation service.
package timeinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/musigent/internal/logging"
	"github.com/yourorg/musigent/pkg/types"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	// Layout renders times as "2006-01-02 15:04:05 UTC".
	Layout = "2006-01-02 15:04:05 UTC"
)

type Provider struct {
	// LookupURL is queried for {"timezone": ...}. Empty disables detection.
	LookupURL  string
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
	Clock      func() time.Time
}

func NewProvider(lookupURL string, timeout time.Duration, logger logrus.FieldLogger) *Provider {
	return &Provider{
		LookupURL:  lookupURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logging.OrDiscard(logger),
		Clock:      time.Now,
	}
}

// Now never fails; a failed lookup yields StatusError with the UTC time still set.
func (p *Provider) Now(ctx context.Context) types.TimeInfo {
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	info := types.TimeInfo{Status: StatusSuccess, UTCTime: clock().UTC().Format(Layout)}
	if p.LookupURL == "" {
		return info
	}
	tz, err := p.lookup(ctx)
	if err != nil {
		logging.OrDiscard(p.Logger).WithError(err).Debug("timezone lookup failed")
		info.Status = StatusError
		return info
	}
	info.DetectedTimezone = tz
	return info
}

func (p *Provider) lookup(ctx context.Context) (string, error) {
	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.LookupURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timezone lookup status %d", resp.StatusCode)
	}
	var body struct {
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Timezone == "" {
		return "Unknown", nil
	}
	return body.Timezone, nil
}
