package emergency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/safecircle/server/internal/alert"
	"github.com/safecircle/server/internal/events"
	"github.com/safecircle/server/internal/logger"
	"github.com/safecircle/server/internal/model"
	"github.com/safecircle/server/internal/repo"
)

// publishTimeout bounds the event write so a dead broker cannot delay the response.
const publishTimeout = 2 * time.Second

// Report is an incoming emergency report. Latitude and Longitude carry the
// raw decoded JSON values.
type Report struct {
	Email     string
	Category  string
	Details   string
	Latitude  any
	Longitude any
}

// Outcome is the stored event and one delivery result per notified nominee
type Outcome struct {
	Event   model.EmergencyEvent
	Results []model.FanoutResult
}

// Service records emergencies and alerts the reporting account's nominees
type Service struct {
	accounts   repo.AccountRepo
	nominees   repo.NomineeRepo
	records    repo.EmergencyRepo
	dispatcher *alert.Dispatcher
	publisher  events.Publisher

	publishTimeout time.Duration
}

// NewService creates a new emergency service
func NewService(
	accounts repo.AccountRepo,
	nominees repo.NomineeRepo,
	records repo.EmergencyRepo,
	dispatcher *alert.Dispatcher,
	publisher events.Publisher,
) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		accounts:   accounts,
		nominees:   nominees,
		records:    records,
		dispatcher: dispatcher,
		publisher:  publisher,

		publishTimeout: publishTimeout,
	}
}

func (s *Service) record(ctx context.Context, account model.Account, category, details string, loc *model.Coordinates) (model.EmergencyEvent, error) {
	ev, err := s.records.Create(ctx, model.EmergencyEvent{
		AccountID: account.ID,
		Category:  category,
		Details:   details,
		Location:  loc,
	})
	if err != nil {
		return model.EmergencyEvent{}, fmt.Errorf("failed to record emergency: %w", err)
	}
	return ev, nil
}

// History returns the account's emergencies, newest first
func (s *Service) History(ctx context.Context, email string) ([]model.EmergencyEvent, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	return s.records.ListByAccount(ctx, account.ID)
}

// Report records the emergency and alerts nominees. Once the event is stored
// the report succeeds regardless of how many deliveries failed.
func (s *Service) Report(ctx context.Context, r Report) (Outcome, error) {
	email := strings.TrimSpace(r.Email)
	category := strings.TrimSpace(r.Category)
	if email == "" || category == "" {
		return Outcome{}, fmt.Errorf("%w: email and type required", model.ErrValidation)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return Outcome{}, err
	}

	loc, locErr := alert.ParseCoordinates(r.Latitude, r.Longitude)

	ev, err := s.record(ctx, account, category, strings.TrimSpace(r.Details), loc)
	if err != nil {
		return Outcome{}, err
	}
	logger.Info("emergency recorded",
		logger.Int64("event_id", ev.ID),
		logger.Int64("account_id", account.ID),
		logger.String("type", ev.Category),
	)

	nominees, err := s.nominees.ListByAccount(ctx, account.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to list nominees: %w", err)
	}

	results := s.dispatcher.Dispatch(ctx, alert.Alert{Account: account, Event: ev, LocationErr: locErr}, nominees)

	s.publish(ctx, events.NewEmergencyRecorded(ev, results))

	return Outcome{Event: ev, Results: results}, nil
}

func (s *Service) publish(ctx context.Context, ev events.EmergencyRecorded) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.PublishEmergency(ctx, ev); err != nil {
		logger.Warn("failed to publish emergency event", logger.Int64("event_id", ev.EventID), logger.Err(err))
	}
}
