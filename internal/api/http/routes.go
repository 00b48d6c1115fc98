package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/agrisense/farm-advisory/internal/farm"
	"github.com/agrisense/farm-advisory/internal/store"
	"github.com/agrisense/farm-advisory/internal/weather"
)

var validate = validator.New()

// Deps bundles the collaborators the HTTP handlers need.
type Deps struct {
	Store   store.Store
	Gateway *weather.Gateway
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/farms", func(c *fiber.Ctx) error {
		return c.JSON(deps.Store.ListFarms())
	})

	v1.Get("/farms/:id/weather/current", func(c *fiber.Ctx) error {
		f, err := deps.Store.GetFarm(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown farm")
		}

		obs, err := latestObservation(deps.Store, f.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for farm")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load weather data")
		}
		return c.JSON(obs)
	})

	v1.Get("/farms/:id/weather", func(c *fiber.Ctx) error {
		f, err := deps.Store.GetFarm(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown farm")
		}

		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		obs, err := deps.Store.FindRecentObservations(f.ID, req.From)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load weather history")
		}
		filtered := make([]weather.Observation, 0, len(obs))
		for _, o := range obs {
			if !o.Date.After(weather.DayOf(req.To)) {
				filtered = append(filtered, o)
			}
		}
		return c.JSON(fiber.Map{
			"farmId":       f.ID,
			"from":         req.From,
			"to":           req.To,
			"observations": filtered,
		})
	})

	v1.Get("/farms/:id/alerts", func(c *fiber.Ctx) error {
		f, err := deps.Store.GetFarm(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown farm")
		}
		// Best-effort by contract: this is always a list, possibly empty.
		return c.JSON(deps.Gateway.FetchWeatherAlerts(c.Context(), f.ID, f.Location))
	})

	v1.Post("/farms/:id/soil", func(c *fiber.Ctx) error {
		f, err := deps.Store.GetFarm(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown farm")
		}

		var req soilSampleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		sample, err := req.toSample(f.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		deps.Store.SaveSoilSample(sample)
		return c.Status(fiber.StatusCreated).JSON(sample)
	})

	v1.Get("/sessions/:id/phase", func(c *fiber.Ctx) error {
		sess, err := deps.Store.GetSession(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown session")
		}
		days := sess.DaysSincePlanting(time.Now())
		return c.JSON(fiber.Map{
			"sessionId":         sess.ID,
			"daysSincePlanting": days,
			"phase":             farm.Phase(days, sess.Variety.MaturityDays),
		})
	})

	v1.Get("/sessions/:id/recommendations", func(c *fiber.Ctx) error {
		sess, err := deps.Store.GetSession(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown session")
		}
		return c.JSON(deps.Store.ListRecommendations(sess.ID))
	})

	v1.Post("/sessions/:id/recommendations/:rid/viewed", markHandler(deps.Store.MarkViewed))
	v1.Post("/sessions/:id/recommendations/:rid/implemented", markHandler(deps.Store.MarkImplemented))
}

func markHandler(mark func(sessionID, recID string) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := mark(c.Params("id"), c.Params("rid")); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "unknown recommendation")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to update recommendation")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// latestObservation returns the newest stored observation for the farm.
func latestObservation(st store.Store, farmID string) (*weather.Observation, error) {
	since := time.Now().AddDate(0, 0, -31)
	obs, err := st.FindRecentObservations(farmID, since)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, store.ErrNotFound
	}
	return &obs[len(obs)-1], nil
}

// rangeQuery holds query parameters for the weather history endpoint.
type rangeQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (r *rangeQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	r.From = from
	r.To = to
	return nil
}

// parseTime tries to parse either RFC3339, a bare date, or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339, YYYY-MM-DD, or unix seconds")
}

// soilSampleRequest is the POST body for recording a soil analysis.
type soilSampleRequest struct {
	SoilType         string   `json:"soilType"`
	PH               *float64 `json:"ph" validate:"omitempty,gte=0,lte=14"`
	OrganicMatterPct *float64 `json:"organicMatterPct" validate:"omitempty,gte=0,lte=100"`
	NitrogenPct      *float64 `json:"nitrogenPct" validate:"omitempty,gte=0"`
	PhosphorusPPM    *float64 `json:"phosphorusPpm" validate:"omitempty,gte=0"`
	PotassiumPPM     *float64 `json:"potassiumPpm" validate:"omitempty,gte=0"`
	MoisturePct      *float64 `json:"moisturePct" validate:"omitempty,gte=0,lte=100"`
	SampleDate       string   `json:"sampleDate" validate:"required"`
}

func (r soilSampleRequest) toSample(farmID string) (farm.SoilSample, error) {
	date, err := time.Parse("2006-01-02", r.SampleDate)
	if err != nil {
		return farm.SoilSample{}, errors.New("sampleDate must be YYYY-MM-DD")
	}
	return farm.SoilSample{
		ID:               uuid.NewString(),
		FarmID:           farmID,
		SoilType:         r.SoilType,
		PH:               r.PH,
		OrganicMatterPct: r.OrganicMatterPct,
		NitrogenPct:      r.NitrogenPct,
		PhosphorusPPM:    r.PhosphorusPPM,
		PotassiumPPM:     r.PotassiumPPM,
		MoisturePct:      r.MoisturePct,
		SampleDate:       date,
	}, nil
}
