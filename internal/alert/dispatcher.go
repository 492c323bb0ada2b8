package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/safecircle/server/internal/logger"
	"github.com/safecircle/server/internal/model"
)

// MaxRecipients caps how many nominees receive a single alert.
const MaxRecipients = 3

// DefaultGeocodeBudget bounds the address lookup done before any message is sent.
const DefaultGeocodeBudget = 3 * time.Second

// Sender delivers a text message and returns the provider's message id
type Sender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// Geocoder resolves coordinates to a human readable address
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Alert is one emergency to broadcast
type Alert struct {
	Account model.Account
	Event   model.EmergencyEvent
	// LocationErr is set when coordinates were supplied but could not be parsed.
	LocationErr error
}

// Dispatcher composes alert messages and sends them to nominees
type Dispatcher struct {
	sender        Sender
	geocoder      Geocoder
	concurrency   int
	geocodeBudget time.Duration
}

// NewDispatcher creates a dispatcher. geocoder may be nil to skip address lookup.
func NewDispatcher(sender Sender, geocoder Geocoder, concurrency int) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		sender:        sender,
		geocoder:      geocoder,
		concurrency:   concurrency,
		geocodeBudget: DefaultGeocodeBudget,
	}
}

// WithGeocodeBudget overrides how long Dispatch waits for an address.
func (d *Dispatcher) WithGeocodeBudget(budget time.Duration) *Dispatcher {
	if budget > 0 {
		d.geocodeBudget = budget
	}
	return d
}

// Dispatch sends the alert to at most MaxRecipients nominees and returns one
// result per recipient in nominee order. Delivery and geocoding failures are
// reported inline and never returned as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, a Alert, nominees []model.Nominee) []model.FanoutResult {
	// Alerts already underway must finish even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if len(nominees) > MaxRecipients {
		nominees = nominees[:MaxRecipients]
	}

	body := ComposeMessage(a.Account, a.Event, d.resolveLocation(ctx, a))
	results := make([]model.FanoutResult, len(nominees))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, n := range nominees {
		g.Go(func() error {
			results[i] = d.send(ctx, n.Phone, body)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) send(ctx context.Context, phone, body string) model.FanoutResult {
	res := model.FanoutResult{Nominee: phone}

	id, err := d.sender.SendSMS(ctx, phone, body)
	if err != nil {
		logger.Warn("alert delivery failed", logger.Phone("to", phone), logger.Err(err))
		res.Error = err.Error()
		return res
	}

	logger.Info("alert delivered", logger.Phone("to", phone), logger.String("message_id", id))
	res.Success = true
	res.MessageID = id
	return res
}

func (d *Dispatcher) resolveLocation(ctx context.Context, a Alert) string {
	if a.LocationErr != nil {
		return "Location error: " + a.LocationErr.Error()
	}
	if a.Event.Location == nil || d.geocoder == nil {
		return ""
	}

	geoCtx, cancel := context.WithTimeout(ctx, d.geocodeBudget)
	defer cancel()

	addr, err := d.geocoder.Reverse(geoCtx, a.Event.Location.Latitude, a.Event.Location.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed", logger.Err(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return "Location error: geocoder busy"
		}
		return fmt.Sprintf("Location error: %v", err)
	}
	return "Location: " + addr
}
