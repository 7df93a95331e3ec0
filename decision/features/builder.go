// Package features derives the per-stay-date feature rows a forecast run
// consumes: pickup deltas at fixed lags, same-time-last-year comparisons,
// and calendar attributes, all computed from the OTB snapshot history.
package features

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hotel-revenue/pkg/dateutil"
	"hotel-revenue/pkg/schema"
)

// Pickup lag windows in days, longest first, with the matching tolerance for
// each: an exact snapshot at as_of − lag is preferred, otherwise the nearest
// snapshot within ±tolerance days qualifies.
var pickupLags = []struct {
	Lag       int
	Tolerance int
	Key       string
}{
	{30, 5, "t30"},
	{15, 4, "t15"},
	{7, 3, "t7"},
	{5, 2, "t5"},
	{3, 1, "t3"},
}

const (
	stlyOffsetDays    = 364
	stlyStayTolerance = 7
)

// SnapshotSource reads materialized OTB snapshots.
type SnapshotSource interface {
	SnapshotRows(ctx context.Context, hotelID uuid.UUID, asOfDate time.Time) ([]schema.OTBRow, error)
	SnapshotHistory(ctx context.Context, hotelID uuid.UUID) ([]schema.OTBRow, error)
	ListAsOfDates(ctx context.Context, hotelID uuid.UUID) ([]time.Time, error)
}

// FeatureWriter persists feature rows with a wholesale per-(hotel, as_of_date)
// replace.
type FeatureWriter interface {
	ReplaceFeatures(ctx context.Context, hotelID uuid.UUID, asOfDate time.Time, rows []schema.FeatureRow) error
}

// Builder computes feature rows from snapshot history.
type Builder struct {
	source SnapshotSource
	writer FeatureWriter
	log    *logrus.Logger
}

// NewBuilder creates a feature builder.
func NewBuilder(source SnapshotSource, writer FeatureWriter, log *logrus.Logger) *Builder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Builder{source: source, writer: writer, log: log}
}

// histPoint is one (as_of_date, rooms) observation for a stay date.
type histPoint struct {
	asOf  time.Time
	rooms int
}

// history indexes the full snapshot table by stay date for O(log n) lag and
// STLY lookups. Points per stay date are sorted by as-of date.
type history struct {
	byStay map[time.Time][]histPoint
}

func indexHistory(rows []schema.OTBRow) *history {
	h := &history{byStay: make(map[time.Time][]histPoint)}
	for _, r := range rows {
		stay := dateutil.Date(r.StayDate)
		h.byStay[stay] = append(h.byStay[stay], histPoint{asOf: dateutil.Date(r.AsOfDate), rooms: r.RoomsOTB})
	}
	for stay := range h.byStay {
		pts := h.byStay[stay]
		sort.Slice(pts, func(i, j int) bool { return pts[i].asOf.Before(pts[j].asOf) })
		h.byStay[stay] = pts
	}
	return h
}

// nearest returns the observation for stayDate taken closest to target,
// within ±tolerance days and strictly before limit. Exact matches win; among
// non-exact candidates the smallest date distance wins, later as-of on ties.
func (h *history) nearest(stayDate, target time.Time, tolerance int, limit time.Time) (histPoint, bool) {
	best := histPoint{}
	bestDist := math.MaxInt32
	found := false
	for _, pt := range h.byStay[stayDate] {
		if !pt.asOf.Before(limit) {
			continue
		}
		dist := dateutil.DaysBetween(target, pt.asOf)
		if dist < 0 {
			dist = -dist
		}
		if dist > tolerance {
			continue
		}
		if !found || dist < bestDist || (dist == bestDist && pt.asOf.After(best.asOf)) {
			best, bestDist, found = pt, dist, true
		}
	}
	return best, found
}

// stly finds the same-time-last-year observation for stayDate as seen from
// asOf: a stay date within ±7 days of stay−364 sharing its day of week,
// observed at an as-of date at least 364 days before asOf. The most recent
// qualifying as-of wins, then the closest stay date.
func (h *history) stly(stayDate, asOf time.Time) (rooms int, matchedStay time.Time, ok bool) {
	target := dateutil.AddDays(stayDate, -stlyOffsetDays)
	asOfLimit := dateutil.AddDays(asOf, -stlyOffsetDays)

	bestStayDist := math.MaxInt32
	var bestAsOf time.Time
	for off := -stlyStayTolerance; off <= stlyStayTolerance; off++ {
		cand := dateutil.AddDays(target, off)
		if cand.Weekday() != target.Weekday() {
			continue
		}
		stayDist := off
		if stayDist < 0 {
			stayDist = -stayDist
		}
		for _, pt := range h.byStay[cand] {
			if pt.asOf.After(asOfLimit) {
				continue
			}
			better := false
			switch {
			case !ok:
				better = true
			case pt.asOf.After(bestAsOf):
				better = true
			case pt.asOf.Equal(bestAsOf) && stayDist < bestStayDist:
				better = true
			}
			if better {
				rooms, matchedStay, ok = pt.rooms, cand, true
				bestAsOf, bestStayDist = pt.asOf, stayDist
			}
		}
	}
	return rooms, matchedStay, ok
}

// BuildResult summarizes one feature build.
type BuildResult struct {
	AsOfDate    time.Time `json:"as_of_date"`
	RowsWritten int       `json:"rows_written"`
	StlyMatches int       `json:"stly_matches"`
}

// Build derives and persists the feature rows for one as-of date. Stay dates
// earlier than the as-of date are skipped; only future stays are actionable.
func (b *Builder) Build(ctx context.Context, hotel schema.Hotel, asOfDate time.Time) (*BuildResult, error) {
	asOfDate = dateutil.Date(asOfDate)

	current, err := b.source.SnapshotRows(ctx, hotel.ID, asOfDate)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", asOfDate.Format("2006-01-02"), err)
	}
	all, err := b.source.SnapshotHistory(ctx, hotel.ID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot history: %w", err)
	}
	hist := indexHistory(all)

	res := &BuildResult{AsOfDate: asOfDate}
	rows := make([]schema.FeatureRow, 0, len(current))
	for _, snap := range current {
		stay := dateutil.Date(snap.StayDate)
		if stay.Before(asOfDate) {
			continue
		}

		row := schema.FeatureRow{
			HotelID:         hotel.ID,
			AsOfDate:        asOfDate,
			StayDate:        stay,
			RoomsOTB:        snap.RoomsOTB,
			RevenueOTB:      snap.RevenueOTB,
			RemainingSupply: hotel.Capacity - snap.RoomsOTB,
			DOW:             int(stay.Weekday()),
			Month:           int(stay.Month()),
			IsWeekend:       dateutil.IsWeekend(stay),
			PickupSources:   make(map[string]schema.PickupSource),
		}

		for _, w := range pickupLags {
			target := dateutil.AddDays(asOfDate, -w.Lag)
			pt, found := hist.nearest(stay, target, w.Tolerance, asOfDate)
			if !found {
				continue
			}
			delta := snap.RoomsOTB - pt.rooms
			src := schema.PickupSource{Src: "exact", DeltaDays: w.Lag, AsOfDate: pt.asOf}
			if !pt.asOf.Equal(target) {
				actual := dateutil.DaysBetween(pt.asOf, asOfDate)
				delta = int(math.Round(float64(delta) * float64(w.Lag) / float64(actual)))
				src.Src = "nearest"
				src.DeltaDays = actual
			}
			v := delta
			switch w.Key {
			case "t30":
				row.PickupT30 = &v
			case "t15":
				row.PickupT15 = &v
			case "t7":
				row.PickupT7 = &v
			case "t5":
				row.PickupT5 = &v
			case "t3":
				row.PickupT3 = &v
			}
			row.PickupSources[w.Key] = src
		}

		if rooms, matched, ok := hist.stly(stay, asOfDate); ok {
			lyRooms := rooms
			pace := snap.RoomsOTB - lyRooms
			row.StlyRoomsOTB = &lyRooms
			row.PaceVsLY = &pace
			row.StlyIsApprox = !matched.Equal(dateutil.AddDays(stay, -stlyOffsetDays))
			res.StlyMatches++
		}

		rows = append(rows, row)
	}

	if err := b.writer.ReplaceFeatures(ctx, hotel.ID, asOfDate, rows); err != nil {
		return nil, fmt.Errorf("replace features %s: %w", asOfDate.Format("2006-01-02"), err)
	}
	res.RowsWritten = len(rows)

	b.log.WithFields(logrus.Fields{
		"hotel_id":   hotel.ID,
		"as_of_date": asOfDate.Format("2006-01-02"),
		"rows":       res.RowsWritten,
		"stly":       res.StlyMatches,
	}).Info("features built")

	return res, nil
}

// BuildAll rebuilds features for every materialized snapshot date, oldest
// first. Per-date failures are recorded and skipped.
func (b *Builder) BuildAll(ctx context.Context, hotel schema.Hotel) (built int, failed map[string]string, err error) {
	dates, err := b.source.ListAsOfDates(ctx, hotel.ID)
	if err != nil {
		return 0, nil, err
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	failed = make(map[string]string)
	for _, d := range dates {
		if _, err := b.Build(ctx, hotel, d); err != nil {
			failed[dateutil.Date(d).Format("2006-01-02")] = err.Error()
			continue
		}
		built++
	}
	if len(failed) == 0 {
		failed = nil
	}
	return built, failed, nil
}
