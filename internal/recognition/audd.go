package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// AudDClient talks to an AudD-compatible recognition endpoint.
type AudDClient struct {
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
}

// NewAudDClient returns nil when no token is configured, which the Adapter treats as
// "recognition unavailable".
func NewAudDClient(baseURL, token string, timeout time.Duration) Recognizer {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return &AudDClient{
		BaseURL:    baseURL,
		APIToken:   token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type auddResponse struct {
	Status string `json:"status"`
	Result *struct {
		Artist string `json:"artist"`
		Title  string `json:"title"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_message"`
	} `json:"error"`
}

func (c *AudDClient) Recognize(ctx context.Context, audio []byte) (*Match, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.WriteField("api_token", c.APIToken); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile("file", "draft.audio")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognition request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("recognition read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("recognition status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out auddResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("recognition decode: %w", err)
	}
	if out.Status != "success" {
		if out.Error != nil {
			return nil, fmt.Errorf("recognition error %d: %s", out.Error.Code, out.Error.Message)
		}
		return nil, errors.New("recognition returned status " + out.Status)
	}
	if out.Result == nil || (out.Result.Artist == "" && out.Result.Title == "") {
		return nil, nil
	}
	return &Match{Artist: out.Result.Artist, Title: out.Result.Title}, nil
}
