package timeinfo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixed = time.Date(2025, 3, 14, 9, 26, 53, 0, time.FixedZone("X", 3600))

func TestNowWithoutLookup(t *testing.T) {
	p := NewProvider("", time.Second, nil)
	p.Clock = func() time.Time { return fixed }

	info := p.Now(context.Background())
	assert.Equal(t, StatusSuccess, info.Status)
	assert.Equal(t, "2025-03-14 08:26:53 UTC", info.UTCTime)
	assert.Empty(t, info.DetectedTimezone)
}

func TestNowDetectsTimezone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"1.2.3.4","timezone":"Europe/Berlin"}`))
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, time.Second, nil)
	p.Clock = func() time.Time { return fixed }
	info := p.Now(context.Background())
	assert.Equal(t, StatusSuccess, info.Status)
	assert.Equal(t, "Europe/Berlin", info.DetectedTimezone)
}

func TestNowLookupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, time.Second, nil)
	p.Clock = func() time.Time { return fixed }
	info := p.Now(context.Background())
	assert.Equal(t, StatusError, info.Status)
	assert.Equal(t, "2025-03-14 08:26:53 UTC", info.UTCTime)
	assert.Empty(t, info.DetectedTimezone)
}
