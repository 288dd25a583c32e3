// Package ipapi detecta la zona horaria del usuario por geolocalización de
// IP contra ip-api.com. Best-effort: una falla acá solo significa caer al
// default UTC.
package ipapi

import (
	"context"
	"fmt"
	"time"

	"calendar-assistant/internal/platform/httpclient"
)

const DefaultBaseURL = "http://ip-api.com"

type Detector struct {
	client *httpclient.Client
}

func New() *Detector {
	return &Detector{client: httpclient.New(5 * time.Second)}
}

// NewWithClient inyecta el http client (para tests).
func NewWithClient(client *httpclient.Client) *Detector {
	return &Detector{client: client}
}

type response struct {
	Status   string `json:"status"`
	Timezone string `json:"timezone"`
}

func (d *Detector) Detect(ctx context.Context) (string, error) {
	var res response
	if err := d.client.DoJSON(ctx, "GET", DefaultBaseURL+"/json/", nil, nil, &res); err != nil {
		return "", fmt.Errorf("ipapi: lookup: %w", err)
	}
	if res.Status != "success" || res.Timezone == "" {
		return "", fmt.Errorf("ipapi: lookup did not succeed (status=%s)", res.Status)
	}
	if _, err := time.LoadLocation(res.Timezone); err != nil {
		return "", fmt.Errorf("ipapi: invalid timezone %q: %w", res.Timezone, err)
	}
	return res.Timezone, nil
}
