// Package pipeline runs the per-(hotel, as_of_date) forecast chain: feature
// rows in, demand forecasts and price recommendations out.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hotel-revenue/decision/cancel"
	"hotel-revenue/decision/demand"
	"hotel-revenue/decision/price"
	"hotel-revenue/pkg/dateutil"
	"hotel-revenue/pkg/schema"
)

// Store is the slice of the derived-table store a forecast run needs.
type Store interface {
	Hotel(ctx context.Context, id uuid.UUID) (*schema.Hotel, error)
	Seasons(ctx context.Context, hotelID uuid.UUID) ([]schema.SeasonRange, error)
	Features(ctx context.Context, hotelID uuid.UUID, asOfDate time.Time) ([]schema.FeatureRow, error)
	CancelBuckets(ctx context.Context, hotelID uuid.UUID) ([]schema.CancelRateBucket, error)
	ReplaceDemand(ctx context.Context, hotelID uuid.UUID, asOfDate time.Time, rows []schema.DemandForecastRow) error
	ReplaceRecommendations(ctx context.Context, hotelID uuid.UUID, asOfDate time.Time, rows []schema.PriceRecommendationRow) error
}

// Runner executes forecast+price runs.
type Runner struct {
	store Store
	log   *logrus.Logger
}

// NewRunner creates a pipeline runner.
func NewRunner(store Store, log *logrus.Logger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{store: store, log: log}
}

// RunResult summarizes one forecast+price run.
type RunResult struct {
	AsOfDate         time.Time `json:"as_of_date"`
	DemandRows       int       `json:"demand_rows"`
	PriceRows        int       `json:"price_rows"`
	SkippedStayDates int       `json:"skipped_stay_dates"`
}

// Run forecasts demand and recommends prices for every feature row at
// (hotelID, asOfDate), then persists both tables atomically. Stay dates
// whose optimizer input is invalid are skipped and counted, not fatal.
func (r *Runner) Run(ctx context.Context, hotelID uuid.UUID, asOfDate time.Time) (*RunResult, error) {
	asOfDate = dateutil.Date(asOfDate)

	hotel, err := r.store.Hotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	seasons, err := r.store.Seasons(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	features, err := r.store.Features(ctx, hotelID, asOfDate)
	if err != nil {
		return nil, err
	}
	buckets, err := r.store.CancelBuckets(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	forecaster := cancel.NewForecaster(buckets)

	res := &RunResult{AsOfDate: asOfDate}
	demandRows := make([]schema.DemandForecastRow, 0, len(features))
	priceRows := make([]schema.PriceRecommendationRow, 0, len(features))

	for _, f := range features {
		forecast := demand.Estimate(demand.Input{
			Pickups:         [5]*int{f.PickupT30, f.PickupT15, f.PickupT7, f.PickupT5, f.PickupT3},
			DaysToArrival:   dateutil.DaysBetween(asOfDate, f.StayDate),
			PaceVsLY:        f.PaceVsLY,
			RemainingSupply: f.RemainingSupply,
		})
		demandRows = append(demandRows, schema.DemandForecastRow{
			HotelID:         hotelID,
			AsOfDate:        asOfDate,
			StayDate:        f.StayDate,
			RemainingDemand: forecast.RemainingDemand,
			Confidence:      forecast.Confidence,
			ModelVersion:    forecast.ModelVersion,
			Trace:           forecast.Trace,
		})

		cxl := forecaster.Expected(f.StayDate, asOfDate, f.RoomsOTB, schema.SegmentAll, seasons)

		rec, err := price.Optimize(price.Input{
			HotelID:          hotelID.String(),
			BaseRate:         hotel.BaseRate,
			RoomsOTB:         f.RoomsOTB,
			RemainingDemand:  forecast.RemainingDemand,
			RemainingSupply:  f.RemainingSupply,
			ExpectedCxl:      cxl.ExpectedCxl,
			Capacity:         hotel.Capacity,
			SeasonMultiplier: seasonMultiplier(seasons, f.StayDate),
			Confidence:       forecast.Confidence,
			Guardrails: price.GuardrailConfig{
				MinRate:    hotel.MinRate,
				MaxRate:    hotel.MaxRate,
				MaxStepPct: hotel.MaxStepPct,
				Rounding:   price.RoundNone,
			},
		})
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"hotel_id":  hotelID,
				"stay_date": f.StayDate.Format("2006-01-02"),
			}).WithError(err).Warn("price optimization skipped")
			res.SkippedStayDates++
			continue
		}

		trace := append([]string{fmt.Sprintf("expected_cxl=%d (bucket=%s level=%d)", cxl.ExpectedCxl, cxl.BucketUsed, cxl.FallbackLevel)}, rec.Trace...)
		priceRows = append(priceRows, schema.PriceRecommendationRow{
			HotelID:              hotelID,
			AsOfDate:             asOfDate,
			StayDate:             f.StayDate,
			RecommendedPrice:     rec.Price,
			Zone:                 rec.Zone,
			Multiplier:           rec.Multiplier,
			ExpectedFinalRooms:   rec.ExpectedFinalRooms,
			ProjectedOccupancy:   rec.ProjectedOccupancy,
			ExpectedGrossRevenue: rec.GrossRevenue,
			ExpectedNetRevenue:   rec.NetRevenue,
			UpliftPct:            rec.UpliftPct,
			Trace:                trace,
		})
	}

	if err := r.store.ReplaceDemand(ctx, hotelID, asOfDate, demandRows); err != nil {
		return nil, fmt.Errorf("replace demand forecasts: %w", err)
	}
	if err := r.store.ReplaceRecommendations(ctx, hotelID, asOfDate, priceRows); err != nil {
		return nil, fmt.Errorf("replace price recommendations: %w", err)
	}
	res.DemandRows = len(demandRows)
	res.PriceRows = len(priceRows)

	r.log.WithFields(logrus.Fields{
		"hotel_id":    hotelID,
		"as_of_date":  asOfDate.Format("2006-01-02"),
		"demand_rows": res.DemandRows,
		"price_rows":  res.PriceRows,
	}).Info("forecast run complete")

	return res, nil
}

// seasonMultiplier resolves the price multiplier for a stay date from the
// highest-priority matching season range, defaulting to 1.0.
func seasonMultiplier(seasons []schema.SeasonRange, stayDate time.Time) float64 {
	mmdd := dateutil.MonthDay(stayDate)
	best := 1.0
	bestPriority := -1
	for _, s := range seasons {
		if s.Multiplier > 0 && s.Priority > bestPriority && dateutil.MonthDayInRange(mmdd, s.Start, s.End) {
			best = s.Multiplier
			bestPriority = s.Priority
		}
	}
	return best
}
