package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-revenue/pkg/confidence"
	"hotel-revenue/pkg/schema"
)

var testHotelID = uuid.MustParse("5b1e8f9a-1111-4222-8333-444455556666")

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func ip(v int) *int { return &v }

type fakeStore struct {
	hotel    schema.Hotel
	seasons  []schema.SeasonRange
	features []schema.FeatureRow
	buckets  []schema.CancelRateBucket

	demand []schema.DemandForecastRow
	prices []schema.PriceRecommendationRow
}

func (f *fakeStore) Hotel(context.Context, uuid.UUID) (*schema.Hotel, error) {
	return &f.hotel, nil
}

func (f *fakeStore) Seasons(context.Context, uuid.UUID) ([]schema.SeasonRange, error) {
	return f.seasons, nil
}

func (f *fakeStore) Features(context.Context, uuid.UUID, time.Time) ([]schema.FeatureRow, error) {
	return f.features, nil
}

func (f *fakeStore) CancelBuckets(context.Context, uuid.UUID) ([]schema.CancelRateBucket, error) {
	return f.buckets, nil
}

func (f *fakeStore) ReplaceDemand(_ context.Context, _ uuid.UUID, _ time.Time, rows []schema.DemandForecastRow) error {
	f.demand = rows
	return nil
}

func (f *fakeStore) ReplaceRecommendations(_ context.Context, _ uuid.UUID, _ time.Time, rows []schema.PriceRecommendationRow) error {
	f.prices = rows
	return nil
}

func featureRow(stay string, roomsOTB, supply int) schema.FeatureRow {
	return schema.FeatureRow{
		HotelID:         testHotelID,
		AsOfDate:        day("2025-06-10"),
		StayDate:        day(stay),
		RoomsOTB:        roomsOTB,
		RemainingSupply: supply,
		PickupT7:        ip(14),
	}
}

func TestRunProducesBothTables(t *testing.T) {
	store := &fakeStore{
		hotel: schema.Hotel{
			ID: testHotelID, Capacity: 100,
			BaseRate: 1000, MinRate: 1, MaxRate: 1e9,
		},
		features: []schema.FeatureRow{
			featureRow("2025-06-20", 40, 60),
			featureRow("2025-06-21", 30, 70),
		},
	}
	runner := NewRunner(store, nil)

	result, err := runner.Run(context.Background(), testHotelID, day("2025-06-10"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.DemandRows)
	assert.Equal(t, 2, result.PriceRows)
	assert.Zero(t, result.SkippedStayDates)
	require.Len(t, store.demand, 2)
	require.Len(t, store.prices, 2)

	// t7 pickup of 14 over 10 days out: rate 2.0 x 10 days.
	d := store.demand[0]
	assert.Equal(t, 20, d.RemainingDemand)
	assert.Equal(t, confidence.Low, d.Confidence)
	assert.NotEmpty(t, d.ModelVersion)

	// Untrained cancel model: hard default 0.15 on 40 rooms.
	p := store.prices[0]
	require.NotEmpty(t, p.Trace)
	assert.True(t, strings.HasPrefix(p.Trace[0], "expected_cxl=6"), "trace[0] = %q", p.Trace[0])
	assert.Greater(t, p.RecommendedPrice, 0.0)
	assert.Equal(t, day("2025-06-20"), p.StayDate)
}

func TestRunSkipsStayDatesTheOptimizerRejects(t *testing.T) {
	store := &fakeStore{
		hotel: schema.Hotel{ID: testHotelID, Capacity: 100}, // no base rate configured
		features: []schema.FeatureRow{
			featureRow("2025-06-20", 40, 60),
		},
	}
	runner := NewRunner(store, nil)

	result, err := runner.Run(context.Background(), testHotelID, day("2025-06-10"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.SkippedStayDates)
	assert.Equal(t, 1, result.DemandRows, "demand rows persist even when pricing is impossible")
	assert.Zero(t, result.PriceRows)
}

func TestSeasonMultiplierPicksHighestPriority(t *testing.T) {
	seasons := []schema.SeasonRange{
		{Code: "SUMMER", Start: "05-01", End: "09-30", Priority: 5, Multiplier: 1.1},
		{Code: "HIGH", Start: "06-01", End: "08-31", Priority: 10, Multiplier: 1.3},
	}
	assert.InDelta(t, 1.3, seasonMultiplier(seasons, day("2025-07-01")), 1e-9)
	assert.InDelta(t, 1.1, seasonMultiplier(seasons, day("2025-05-10")), 1e-9)
	assert.InDelta(t, 1.0, seasonMultiplier(seasons, day("2025-03-01")), 1e-9)
}
