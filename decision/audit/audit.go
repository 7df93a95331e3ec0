// Package audit scans a hotel's materialized snapshots for data-quality
// problems before a forecast run: impossible values, stale coverage, and
// implausible pickup jumps between imports.
package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"hotel-revenue/decision/features"
	"hotel-revenue/pkg/cache"
	"hotel-revenue/pkg/dateutil"
	"hotel-revenue/pkg/schema"
)

// Issue codes.
const (
	CodeNegativeRooms   = "NEGATIVE_ROOMS"
	CodeNegativeRevenue = "NEGATIVE_REVENUE"
	CodePastStayDate    = "PAST_STAY_DATE"
	CodeExceedsCapacity = "EXCEEDS_CAPACITY"
	CodeUnusualPickup   = "UNUSUAL_PICKUP"
	CodeNoSnapshots     = "NO_SNAPSHOTS"
)

// Statuses, worst wins.
const (
	StatusPass    = "PASS"
	StatusWarning = "WARNING"
	StatusFail    = "FAIL"
)

// unusualPickupShare of capacity moved for one stay date between the two
// most recent snapshots is flagged as a suspicious import.
const unusualPickupShare = 0.30

// completenessWindowDays is the forward horizon coverage is measured over.
const completenessWindowDays = 365

// Issue is one finding with the stay dates it affects.
type Issue struct {
	Code     string   `json:"code"`
	Severity string   `json:"severity"`
	Count    int      `json:"count"`
	Examples []string `json:"examples,omitempty"`
}

// Report is one audit outcome.
type Report struct {
	HotelID         string    `json:"hotel_id"`
	Status          string    `json:"status"`
	SnapshotCount   int       `json:"snapshot_count"`
	LatestAsOf      time.Time `json:"latest_as_of"`
	CompletenessPct float64   `json:"completeness_pct"`
	Issues          []Issue   `json:"issues,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Auditor runs snapshot audits with a short result cache; the same report
// within the TTL is served from memory until ingestion invalidates it.
type Auditor struct {
	source features.SnapshotSource
	cache  *cache.TTL[*Report]
	log    *logrus.Logger
}

// NewAuditor creates an auditor whose reports stay cached for ttl.
func NewAuditor(source features.SnapshotSource, ttl time.Duration, log *logrus.Logger) *Auditor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Auditor{source: source, cache: cache.NewTTL[*Report](ttl), log: log}
}

// InvalidateHotel drops every cached report for the hotel. Called after a
// rebuild or a fresh import.
func (a *Auditor) InvalidateHotel(hotelID string) {
	a.cache.InvalidatePrefix(hotelID + "|")
}

// Audit scans the hotel's two most recent snapshots and its as-of coverage.
func (a *Auditor) Audit(ctx context.Context, hotel schema.Hotel) (*Report, error) {
	key := hotel.ID.String() + "|audit"
	if cached, ok := a.cache.Get(key); ok {
		return cached, nil
	}

	dates, err := a.source.ListAsOfDates(ctx, hotel.ID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot dates: %w", err)
	}
	report := &Report{HotelID: hotel.ID.String(), Status: StatusPass, GeneratedAt: time.Now().UTC()}

	if len(dates) == 0 {
		report.Status = StatusFail
		report.Issues = append(report.Issues, Issue{Code: CodeNoSnapshots, Severity: StatusFail, Count: 1})
		report.Recommendations = append(report.Recommendations, "run a snapshot backfill; no OTB data is materialized")
		a.cache.Set(key, report)
		return report, nil
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	latest := dateutil.Date(dates[len(dates)-1])
	report.SnapshotCount = len(dates)
	report.LatestAsOf = latest

	rows, err := a.source.SnapshotRows(ctx, hotel.ID, latest)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}

	issues := map[string]*Issue{}
	record := func(code, severity string, stay time.Time) {
		is, ok := issues[code]
		if !ok {
			is = &Issue{Code: code, Severity: severity}
			issues[code] = is
		}
		is.Count++
		if len(is.Examples) < 5 {
			is.Examples = append(is.Examples, stay.Format("2006-01-02"))
		}
	}

	covered := 0
	for _, r := range rows {
		stay := dateutil.Date(r.StayDate)
		if r.RoomsOTB < 0 {
			record(CodeNegativeRooms, StatusFail, stay)
		}
		if r.RevenueOTB.IsNegative() {
			record(CodeNegativeRevenue, StatusFail, stay)
		}
		if stay.Before(latest) {
			record(CodePastStayDate, StatusWarning, stay)
		}
		if hotel.Capacity > 0 && r.RoomsOTB > hotel.Capacity {
			record(CodeExceedsCapacity, StatusWarning, stay)
		}
		if !stay.Before(latest) && dateutil.DaysBetween(latest, stay) < completenessWindowDays {
			covered++
		}
	}
	report.CompletenessPct = float64(covered) / float64(completenessWindowDays) * 100

	if len(dates) >= 2 && hotel.Capacity > 0 {
		prev := dateutil.Date(dates[len(dates)-2])
		prevRows, err := a.source.SnapshotRows(ctx, hotel.ID, prev)
		if err != nil {
			return nil, fmt.Errorf("load prior snapshot: %w", err)
		}
		prevByStay := make(map[time.Time]int, len(prevRows))
		for _, r := range prevRows {
			prevByStay[dateutil.Date(r.StayDate)] = r.RoomsOTB
		}
		threshold := int(unusualPickupShare * float64(hotel.Capacity))
		for _, r := range rows {
			stay := dateutil.Date(r.StayDate)
			prevRooms, ok := prevByStay[stay]
			if !ok {
				continue
			}
			delta := r.RoomsOTB - prevRooms
			if delta < 0 {
				delta = -delta
			}
			if delta > threshold {
				record(CodeUnusualPickup, StatusWarning, stay)
			}
		}
	}

	for _, is := range issues {
		report.Issues = append(report.Issues, *is)
		if is.Severity == StatusFail {
			report.Status = StatusFail
		} else if report.Status == StatusPass {
			report.Status = StatusWarning
		}
	}
	sort.Slice(report.Issues, func(i, j int) bool { return report.Issues[i].Code < report.Issues[j].Code })

	if report.CompletenessPct < 80 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("only %.0f%% of the next %d stay dates have OTB rows; extend the snapshot horizon", report.CompletenessPct, completenessWindowDays))
	}
	if is, ok := issues[CodeUnusualPickup]; ok {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d stay dates moved more than %.0f%% of capacity since the prior snapshot; verify the latest import", is.Count, unusualPickupShare*100))
	}
	if _, ok := issues[CodeExceedsCapacity]; ok {
		report.Recommendations = append(report.Recommendations, "rooms on the books exceed capacity on some dates; confirm overbooking is intended")
	}

	a.log.WithFields(logrus.Fields{
		"hotel_id":     hotel.ID,
		"status":       report.Status,
		"issues":       len(report.Issues),
		"completeness": fmt.Sprintf("%.0f%%", report.CompletenessPct),
	}).Info("otb audit complete")

	a.cache.Set(key, report)
	return report, nil
}
