package otb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"hotel-revenue/pkg/dateutil"
)

// Snapshot density tiers, measured back from the most recent booking
// activity: daily close in, weekly for the following window, end-of-month
// beyond that.
const (
	dailyWindowDays  = 35
	weeklyWindowDays = 450
)

// DateRangeSource reports the span of booking activity known for a hotel.
// The plan anchors on the latest booking date, never on wall-clock now,
// because imported data may stop well short of the present.
type DateRangeSource interface {
	BookingDateRange(ctx context.Context, hotelID uuid.UUID) (first, last time.Time, err error)
}

// PlanAsOfDates returns the as-of dates a full backfill should materialize
// between first and last booking activity: daily for the trailing window,
// weekly before that, end-of-month beyond, plus the latest date itself.
// Oldest first, no duplicates.
func PlanAsOfDates(first, last time.Time) []time.Time {
	first = dateutil.Date(first)
	last = dateutil.Date(last)
	if last.Before(first) {
		return nil
	}

	seen := make(map[time.Time]bool)
	var plan []time.Time
	add := func(d time.Time) {
		if d.Before(first) || d.After(last) || seen[d] {
			return
		}
		seen[d] = true
		plan = append(plan, d)
	}

	dailyStart := dateutil.AddDays(last, -(dailyWindowDays - 1))
	weeklyStart := dateutil.AddDays(last, -weeklyWindowDays)

	for d := dailyStart; !d.After(last); d = dateutil.AddDays(d, 1) {
		add(d)
	}
	for d := dateutil.AddDays(dailyStart, -7); !d.Before(weeklyStart); d = dateutil.AddDays(d, -7) {
		add(d)
	}
	for d := dateutil.EndOfMonth(weeklyStart); !d.Before(first); d = dateutil.EndOfMonth(dateutil.AddDays(d, -35)) {
		if d.Before(weeklyStart) {
			add(d)
		}
	}
	add(last)

	sort.Slice(plan, func(i, j int) bool { return plan[i].Before(plan[j]) })
	return plan
}

// BatchResult summarizes a backfill run. Failures are recorded per as-of
// date; one failing date never aborts the rest of the batch.
type BatchResult struct {
	Planned int               `json:"planned"`
	Built   int               `json:"built"`
	Skipped int               `json:"skipped"`
	Failed  map[string]string `json:"failed,omitempty"`
	Results []BuildResult     `json:"results,omitempty"`
}

// Backfill builds every planned snapshot not yet materialized for the
// hotel, at most workers dates at a time. Stay range per snapshot is
// [snapshot date, snapshot date + horizonDays). The latest-activity
// snapshot is always rebuilt so it reflects the newest import.
func (b *Builder) Backfill(ctx context.Context, hotelID uuid.UUID, dates DateRangeSource, horizonDays, workers int) (*BatchResult, error) {
	first, last, err := dates.BookingDateRange(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	plan := PlanAsOfDates(first, last)

	existing, err := b.store.ListAsOfDates(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	have := make(map[time.Time]bool, len(existing))
	for _, d := range existing {
		have[dateutil.Date(d)] = true
	}
	latest := dateutil.Date(last)

	res := &BatchResult{Planned: len(plan), Failed: make(map[string]string)}
	var mu sync.Mutex

	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, asOf := range plan {
		if have[asOf] && !asOf.Equal(latest) {
			res.Skipped++
			continue
		}
		asOf := asOf
		g.Go(func() error {
			r, err := b.Build(gctx, hotelID, asOf, asOf, dateutil.AddDays(asOf, horizonDays))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[asOf.Format("2006-01-02")] = err.Error()
				b.log.WithFields(logrus.Fields{
					"hotel_id":   hotelID,
					"as_of_date": asOf.Format("2006-01-02"),
				}).WithError(err).Warn("snapshot build failed, continuing batch")
				return nil
			}
			res.Built++
			res.Results = append(res.Results, *r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if len(res.Failed) == 0 {
		res.Failed = nil
	}
	sort.Slice(res.Results, func(i, j int) bool { return res.Results[i].AsOfDate.Before(res.Results[j].AsOfDate) })
	return res, nil
}
