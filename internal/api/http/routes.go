package httpapi

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/current-weather/internal/weather"
)

var validate = validator.New()

// Service is the part of weather.Service the handlers use.
type Service interface {
	Current(ctx context.Context, q weather.Query) (weather.Record, error)
	CurrentForDevice(ctx context.Context) (weather.Record, error)
	CurrentForDevicePlace(ctx context.Context) (weather.Record, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		q, err := parseCurrentQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := service.Current(c.UserContext(), q)
		if err != nil {
			return err
		}
		return c.JSON(rec)
	})

	v1.Get("/weather/here", func(c *fiber.Ctx) error {
		var (
			rec weather.Record
			err error
		)
		switch by := c.Query("by", string(weather.ModePostalCode)); by {
		case string(weather.ModePostalCode):
			rec, err = service.CurrentForDevicePlace(c.UserContext())
		case string(weather.ModeCoordinates):
			rec, err = service.CurrentForDevice(c.UserContext())
		default:
			return fiber.NewError(fiber.StatusBadRequest, "by must be postal_code or coordinates")
		}
		if err != nil {
			return err
		}
		return c.JSON(rec)
	})
}

// ErrorHandler renders fetch failures with their kind so callers can tell
// them apart; everything else falls back to the Fiber status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	kind := weather.KindOf(err)

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		kind = ""
	case errors.Is(err, weather.ErrLocationUnavailable):
		code = fiber.StatusNotFound
		kind = "location_unavailable"
	case kind == weather.KindInvalidRequest:
		code = fiber.StatusBadRequest
	case kind == weather.KindTransport, kind == weather.KindDecode:
		code = fiber.StatusBadGateway
	}

	body := fiber.Map{
		"error":   true,
		"message": err.Error(),
	}
	if kind != "" && kind != weather.KindUnknown {
		body["kind"] = kind
	}
	return c.Status(code).JSON(body)
}

// currentQuery holds the query parameters of /weather/current. Exactly one
// addressing mode must be given.
type currentQuery struct {
	City    string `validate:"required_without_all=Lat Lon Zip Country,excluded_with=Lat Lon Zip Country"`
	Lat     string `validate:"required_with=Lon,excluded_with=City Zip Country,omitempty,latitude"`
	Lon     string `validate:"required_with=Lat,excluded_with=City Zip Country,omitempty,longitude"`
	Zip     string `validate:"required_with=Country,excluded_with=City Lat Lon"`
	Country string `validate:"required_with=Zip,excluded_with=City Lat Lon"`
}

func parseCurrentQuery(c *fiber.Ctx) (weather.Query, error) {
	req := currentQuery{
		City:    c.Query("city"),
		Lat:     c.Query("lat"),
		Lon:     c.Query("lon"),
		Zip:     c.Query("zip"),
		Country: c.Query("country"),
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	switch {
	case req.City != "":
		return weather.ByCityName{City: req.City}, nil
	case req.Lat != "":
		lat, err := strconv.ParseFloat(req.Lat, 64)
		if err != nil {
			return nil, errors.New("lat must be a decimal number")
		}
		lon, err := strconv.ParseFloat(req.Lon, 64)
		if err != nil {
			return nil, errors.New("lon must be a decimal number")
		}
		return weather.ByCoordinates{Latitude: lat, Longitude: lon}, nil
	default:
		return weather.ByPostalCode{PostalCode: req.Zip, CountryCode: req.Country}, nil
	}
}
