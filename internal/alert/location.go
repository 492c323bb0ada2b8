package alert

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/safecircle/server/internal/model"
)

// ErrInvalidCoordinates is returned when a coordinate pair is supplied but
// is not a valid latitude/longitude.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// ParseCoordinates turns raw JSON latitude/longitude values into a validated pair.
// It returns (nil, nil) unless both values are present; numbers and numeric
// strings are accepted.
func ParseCoordinates(lat, lon any) (*model.Coordinates, error) {
	if isAbsent(lat) || isAbsent(lon) {
		return nil, nil
	}

	la, err := toFloat(lat)
	if err != nil {
		return nil, err
	}
	lo, err := toFloat(lon)
	if err != nil {
		return nil, err
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return nil, fmt.Errorf("%w: out of range", ErrInvalidCoordinates)
	}
	return &model.Coordinates{Latitude: la, Longitude: lo}, nil
}

func isAbsent(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

func toFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, ErrInvalidCoordinates
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, ErrInvalidCoordinates
		}
		f = n
	default:
		return 0, ErrInvalidCoordinates
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidCoordinates
	}
	return f, nil
}

// MapsLink returns a Google Maps link for the pair
func MapsLink(c model.Coordinates) string {
	return "https://maps.google.com/?q=" +
		strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}
