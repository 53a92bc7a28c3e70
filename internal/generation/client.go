package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client calls a Suno-style HTTP composition API.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// sleepFn waits d or until ctx is done, whichever comes first.
var sleepFn = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pause waits before a retry. A wait that would outlive the context deadline fails
// immediately instead of holding the caller.
func pause(ctx context.Context, d time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < d {
		return fmt.Errorf("retry in %s exceeds deadline: %w", d, context.DeadlineExceeded)
	}
	return sleepFn(ctx, d)
}

type generateRequest struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style"`
	DurationSec  int    `json:"duration"`
	Model        string `json:"model,omitempty"`
	Instrumental bool   `json:"instrumental"`
}

type generateResponse struct {
	AudioURL string `json:"audio_url"`
	Error    string `json:"error"`
}

// Generate never returns an error: transport and service failures become tagged failures.
func (c *Client) Generate(ctx context.Context, prompt, style string, durationSec int) Result {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	ref, err := c.call(ctx, generateRequest{Prompt: prompt, Style: style, DurationSec: durationSec, Model: c.Model, Instrumental: true})
	if err != nil {
		if c.Logger != nil {
			c.Logger.WithError(err).Warn("generation call failed")
		}
		return Failure(TagException + " " + err.Error())
	}
	return DecodeReference(ref)
}

func (c *Client) call(ctx context.Context, payload generateRequest) (string, error) {
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/generate"
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if c.Logger != nil {
		c.Logger.WithFields(logrus.Fields{"url": endpoint, "duration": payload.DurationSec}).Debug("generation request")
	}

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", err
			}
			if attempt < c.MaxRetries {
				if werr := pause(ctx, backoff(attempt)); werr != nil {
					return "", fmt.Errorf("%v: %w", err, werr)
				}
				continue
			}
			return "", err
		}
		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			if attempt < c.MaxRetries {
				if werr := pause(ctx, backoff(attempt)); werr != nil {
					return "", fmt.Errorf("%v: %w", err, werr)
				}
				continue
			}
			return "", err
		}

		if resp.StatusCode == http.StatusPaymentRequired {
			return TagNoCredits + " " + strings.TrimSpace(string(data)), nil
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("generation status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
			if attempt < c.MaxRetries {
				wait := backoff(attempt)
				if resp.StatusCode == http.StatusTooManyRequests {
					if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
						if secs, err := strconv.Atoi(ra); err == nil {
							wait = time.Duration(secs) * time.Second
						}
					}
				}
				if werr := pause(ctx, wait); werr != nil {
					return "", fmt.Errorf("%v: %w", lastErr, werr)
				}
				continue
			}
			return "", lastErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return TagError + " " + fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))), nil
		}

		var out generateResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return "", fmt.Errorf("decode generation response: %w", err)
		}
		if out.Error != "" {
			return TagError + " " + out.Error, nil
		}
		return out.AudioURL, nil
	}
	if lastErr == nil {
		lastErr = errors.New("generation request failed")
	}
	return "", lastErr
}

func backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return time.Second << attempt
}
