package ipapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"calendar-assistant/internal/platform/httpclient"
)

type fakeTransport struct {
	status int
	body   string
}

func (f *fakeTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewBufferString(f.body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}, nil
}

func newDetector(tr *fakeTransport) *Detector {
	return NewWithClient(httpclient.NewWithTransport(time.Second, tr))
}

func TestDetect_Success(t *testing.T) {
	d := newDetector(&fakeTransport{
		status: http.StatusOK,
		body:   `{"status": "success", "timezone": "America/Lima"}`,
	})

	tz, err := d.Detect(context.Background())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if tz != "America/Lima" {
		t.Fatalf("want America/Lima, got %q", tz)
	}
}

func TestDetect_FailureStatus(t *testing.T) {
	d := newDetector(&fakeTransport{
		status: http.StatusOK,
		body:   `{"status": "fail", "message": "private range"}`,
	})

	if _, err := d.Detect(context.Background()); err == nil {
		t.Fatalf("expected error for fail status")
	}
}

func TestDetect_InvalidTimezone(t *testing.T) {
	d := newDetector(&fakeTransport{
		status: http.StatusOK,
		body:   `{"status": "success", "timezone": "Not/AZone"}`,
	})

	if _, err := d.Detect(context.Background()); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}

func TestDetect_HTTPError(t *testing.T) {
	d := newDetector(&fakeTransport{status: http.StatusTooManyRequests, body: `rate limited`})

	if _, err := d.Detect(context.Background()); err == nil {
		t.Fatalf("expected error for non-2xx")
	}
}
