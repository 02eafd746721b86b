package weather

import (
	"time"
)

// Mode identifies how a Query addresses a location.
type Mode string

const (
	ModeCity        Mode = "city"
	ModeCoordinates Mode = "coordinates"
	ModePostalCode  Mode = "postal_code"
)

// Query addresses a location for a current-conditions lookup.
// It is implemented only by ByCityName, ByCoordinates and ByPostalCode.
type Query interface {
	Mode() Mode
	Validate() error
	String() string
	isQuery()
}

// ByCityName looks a location up by its city name.
type ByCityName struct {
	City string `json:"city" validate:"required"`
}

// ByCoordinates looks a location up by latitude and longitude in decimal degrees.
type ByCoordinates struct {
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lon" validate:"longitude"`
}

// ByPostalCode looks a location up by postal code within a country.
type ByPostalCode struct {
	PostalCode  string `json:"zip" validate:"required,excludes=0x2C"`
	CountryCode string `json:"country" validate:"required,alpha,len=2"`
}

func (ByCityName) Mode() Mode    { return ModeCity }
func (ByCoordinates) Mode() Mode { return ModeCoordinates }
func (ByPostalCode) Mode() Mode  { return ModePostalCode }

func (ByCityName) isQuery()    {}
func (ByCoordinates) isQuery() {}
func (ByPostalCode) isQuery()  {}

// Condition is one entry of the provider's "weather" array.
type Condition struct {
	ID          *int64  `json:"id,omitempty"`
	Main        *string `json:"main,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

// Record is the normalized current-conditions observation.
// LocationName, ObservedAt and UTCOffset are always set; a nil pointer
// means the provider did not report that field.
type Record struct {
	LocationName string `json:"locationName"`
	ObservedAt   int64  `json:"observedAt"` // epoch seconds
	UTCOffset    int64  `json:"utcOffsetSeconds"`

	TemperatureC    *float64 `json:"temperatureC,omitempty"`
	FeelsLikeC      *float64 `json:"feelsLikeC,omitempty"`
	TemperatureMinC *float64 `json:"temperatureMinC,omitempty"`
	TemperatureMaxC *float64 `json:"temperatureMaxC,omitempty"`
	HumidityPercent *float64 `json:"humidityPercent,omitempty"`
	PressureHPa     *int64   `json:"pressureHPa,omitempty"`
	WindSpeed       *float64 `json:"windSpeed,omitempty"`

	Conditions []Condition `json:"conditions"`

	CountryCode *string `json:"countryCode,omitempty"`
	SunriseAt   *int64  `json:"sunriseAt,omitempty"`
	SunsetAt    *int64  `json:"sunsetAt,omitempty"`
}

// ObservedTime returns the observation time in UTC.
func (r Record) ObservedTime() time.Time {
	return time.Unix(r.ObservedAt, 0).UTC()
}

// LocalObservedTime returns the observation time in the location's own offset.
func (r Record) LocalObservedTime() time.Time {
	zone := time.FixedZone("", int(r.UTCOffset))
	return time.Unix(r.ObservedAt, 0).In(zone)
}

// PrimaryCondition returns the first condition entry, if any.
func (r Record) PrimaryCondition() (Condition, bool) {
	if len(r.Conditions) == 0 {
		return Condition{}, false
	}
	return r.Conditions[0], true
}

// Position is a point on the earth reported by a Locator.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Place is the reverse-geocoded description of a Position.
// Empty strings mean the geocoder did not report the field.
type Place struct {
	Locality    string
	PostalCode  string
	Country     string
	CountryCode string
}

// Result carries the outcome of an asynchronous fetch.
type Result struct {
	Query  Query
	Record Record
	Err    error
}
