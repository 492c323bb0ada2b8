package alert

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safecircle/server/internal/geocode"
	"github.com/safecircle/server/internal/model"
)

type recordingSender struct {
	mu     sync.Mutex
	bodies map[string]string
	fail   map[string]bool
}

func newRecordingSender(failing ...string) *recordingSender {
	s := &recordingSender{bodies: map[string]string{}, fail: map[string]bool{}}
	for _, p := range failing {
		s.fail[p] = true
	}
	return s
}

func (s *recordingSender) SendSMS(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[to] {
		return "", errors.New("carrier rejected")
	}
	s.bodies[to] = body
	return "SM-" + to, nil
}

type stubGeocoder struct {
	addr string
	err  error
}

func (g stubGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	return g.addr, g.err
}

func nominees(n int) []model.Nominee {
	out := make([]model.Nominee, n)
	for i := range out {
		out[i] = model.Nominee{ID: int64(i + 1), Name: fmt.Sprintf("n%d", i), Phone: fmt.Sprintf("+1000%d", i)}
	}
	return out
}

func TestDispatch_resultPerNominee(t *testing.T) {
	for n := 0; n <= MaxRecipients; n++ {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			sender := newRecordingSender()
			d := NewDispatcher(sender, nil, 3)

			results := d.Dispatch(context.Background(), Alert{
				Account: model.Account{Email: "a@x.com"},
				Event:   model.EmergencyEvent{Category: "fire"},
			}, nominees(n))

			require.Len(t, results, n)
			for i, r := range results {
				assert.True(t, r.Success)
				assert.Equal(t, fmt.Sprintf("+1000%d", i), r.Nominee)
				assert.Equal(t, "SM-"+r.Nominee, r.MessageID)
			}
		})
	}
}

func TestDispatch_capsRecipients(t *testing.T) {
	sender := newRecordingSender()
	d := NewDispatcher(sender, nil, 2)

	results := d.Dispatch(context.Background(), Alert{Event: model.EmergencyEvent{Category: "fire"}}, nominees(5))

	assert.Len(t, results, MaxRecipients)
	assert.Len(t, sender.bodies, MaxRecipients)
}

func TestDispatch_partialFailureIsolated(t *testing.T) {
	sender := newRecordingSender("+10001")
	d := NewDispatcher(sender, nil, 3)

	results := d.Dispatch(context.Background(), Alert{Event: model.EmergencyEvent{Category: "fire"}}, nominees(3))

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "carrier rejected", results[1].Error)
	assert.Empty(t, results[1].MessageID)
	assert.True(t, results[2].Success)
}

func TestDispatch_geocodedLocation(t *testing.T) {
	sender := newRecordingSender()
	d := NewDispatcher(sender, stubGeocoder{addr: "MG Road"}, 1)

	d.Dispatch(context.Background(), Alert{
		Account: model.Account{Name: "Anna"},
		Event: model.EmergencyEvent{
			Category: "medical",
			Location: &model.Coordinates{Latitude: 12.5, Longitude: 77.5},
		},
	}, nominees(1))

	body := sender.bodies["+10000"]
	assert.Contains(t, body, "\nLocation: MG Road\n")
	assert.Contains(t, body, "Maps: https://maps.google.com/?q=12.5,77.5")
}

func TestDispatch_geocoderFailureIsInline(t *testing.T) {
	sender := newRecordingSender()
	d := NewDispatcher(sender, stubGeocoder{err: errors.New("lookup failed (503)")}, 1)

	results := d.Dispatch(context.Background(), Alert{
		Event: model.EmergencyEvent{
			Category: "medical",
			Location: &model.Coordinates{Latitude: 1, Longitude: 2},
		},
	}, nominees(1))

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Contains(t, sender.bodies["+10000"], "Location error: lookup failed (503)")
	assert.Contains(t, sender.bodies["+10000"], "Maps: ")
}

func TestDispatch_invalidCoordinatesHaveNoMapLink(t *testing.T) {
	sender := newRecordingSender()
	d := NewDispatcher(sender, stubGeocoder{addr: "never used"}, 1)

	d.Dispatch(context.Background(), Alert{
		Event:       model.EmergencyEvent{Category: "medical"},
		LocationErr: ErrInvalidCoordinates,
	}, nominees(1))

	body := sender.bodies["+10000"]
	assert.Contains(t, body, "Location error: invalid coordinates")
	assert.NotContains(t, body, "Maps:")
	assert.NotContains(t, body, "never used")
}

func TestDispatch_survivesCanceledContext(t *testing.T) {
	sender := newRecordingSender()
	d := NewDispatcher(sender, nil, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := d.Dispatch(ctx, Alert{Event: model.EmergencyEvent{Category: "fire"}}, nominees(2))
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
}

type hangingGeocoder struct{}

func (hangingGeocoder) Reverse(ctx context.Context, _, _ float64) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestDispatch_slowGeocoderDoesNotHoldAlerts(t *testing.T) {
	sender := newRecordingSender()
	d := NewDispatcher(sender, hangingGeocoder{}, 1).WithGeocodeBudget(50 * time.Millisecond)

	start := time.Now()
	results := d.Dispatch(context.Background(), Alert{
		Event: model.EmergencyEvent{Category: "fire", Location: &model.Coordinates{Latitude: 1, Longitude: 2}},
	}, nominees(1))

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Contains(t, sender.bodies["+10000"], "Location error: geocoder busy")
	assert.Contains(t, sender.bodies["+10000"], "Maps: https://maps.google.com/?q=1,2")
}

func TestDispatch_saturatedGeocoderThrottle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"display_name":"MG Road"}`))
	}))
	defer srv.Close()

	// One lookup per 10s: after the first, every queued lookup misses the budget.
	g := geocode.NewNominatim(srv.URL, "ua", 0.1)

	bodies := make([]string, 5)
	var wg sync.WaitGroup
	start := time.Now()
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := newRecordingSender()
			phone := fmt.Sprintf("+2000%d", i)
			NewDispatcher(sender, g, 1).WithGeocodeBudget(200*time.Millisecond).Dispatch(context.Background(), Alert{
				Event: model.EmergencyEvent{Category: "fire", Location: &model.Coordinates{Latitude: 1, Longitude: 2}},
			}, []model.Nominee{{Phone: phone}})
			bodies[i] = sender.bodies[phone]
		}(i)
	}
	wg.Wait()

	assert.Less(t, time.Since(start), 2*time.Second, "alerts must not queue behind the throttle")

	resolved, busy := 0, 0
	for _, b := range bodies {
		require.NotEmpty(t, b)
		switch {
		case strings.Contains(b, "Location: MG Road"):
			resolved++
		case strings.Contains(b, "Location error: geocoder busy"):
			busy++
		}
	}
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 4, busy)
}
