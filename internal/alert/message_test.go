package alert

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/safecircle/server/internal/model"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestComposeMessage(t *testing.T) {
	anna := model.Account{Email: "anna@x.com", Name: "Anna"}
	unnamed := model.Account{Email: "a@x.com"}

	tests := []struct {
		name     string
		account  model.Account
		event    model.EmergencyEvent
		location string
	}{
		{
			name:    "message_no_location",
			account: anna,
			event:   model.EmergencyEvent{Category: "medical", Details: "   "},
		},
		{
			name:    "message_with_location",
			account: unnamed,
			event: model.EmergencyEvent{
				Category: "fire",
				Details:  "kitchen",
				Location: &model.Coordinates{Latitude: 12.97, Longitude: 77.59},
			},
			location: "Location: MG Road, Bengaluru",
		},
		{
			name:     "message_invalid_coordinates",
			account:  anna,
			event:    model.EmergencyEvent{Category: "assault", Details: "help"},
			location: "Location error: invalid coordinates",
		},
	}

	g := newGoldie(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(ComposeMessage(tt.account, tt.event, tt.location)))
		})
	}
}
