package weather

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func (q ByCityName) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("city query: %w", err)
	}
	return nil
}

func (q ByCoordinates) Validate() error {
	if math.IsNaN(q.Latitude) || math.IsNaN(q.Longitude) ||
		math.IsInf(q.Latitude, 0) || math.IsInf(q.Longitude, 0) {
		return fmt.Errorf("coordinates query: non-finite coordinate")
	}
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("coordinates query: %w", err)
	}
	return nil
}

func (q ByPostalCode) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("postal code query: %w", err)
	}
	return nil
}

func (q ByCityName) String() string { return "city:" + q.City }

func (q ByCoordinates) String() string {
	return "coordinates:" + FormatDegrees(q.Latitude) + "," + FormatDegrees(q.Longitude)
}

func (q ByPostalCode) String() string { return "zip:" + q.PostalCode + "," + q.CountryCode }

// FormatDegrees renders a coordinate as the shortest decimal that round-trips.
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
