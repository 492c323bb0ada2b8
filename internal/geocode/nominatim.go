package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ErrBusy is returned when the throttle cannot admit a request before ctx's deadline.
var ErrBusy = fmt.Errorf("geocoder busy: %w", context.DeadlineExceeded)

// Nominatim is a reverse geocoder backed by an OpenStreetMap Nominatim server.
// Requests are throttled client-side; the public instance allows one per second.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewNominatim creates a client for baseURL (e.g. https://nominatim.openstreetmap.org)
func NewNominatim(baseURL, userAgent string, rps float64) *Nominatim {
	return &Nominatim{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Reverse returns the display name for the given coordinates
func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	// Wait fails at once when the next slot lies past ctx's deadline.
	if err := n.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", ErrBusy
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("location lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("location lookup failed (%d)", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode location response: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("location lookup failed: %s", body.Error)
	}
	if body.DisplayName == "" {
		return "Unknown location", nil
	}
	return body.DisplayName, nil
}
