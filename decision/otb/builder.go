// Package otb materializes on-the-books snapshots: rooms and revenue per
// stay date, as known at a given as-of timestamp, from the append-only
// booking-event feed.
package otb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"hotel-revenue/pkg/dateutil"
	"hotel-revenue/pkg/schema"
)

// EventSource supplies raw booking-event versions overlapping a stay range.
// All versions of a reservation are returned; deduplication happens here.
type EventSource interface {
	EventsOverlapping(ctx context.Context, hotelID uuid.UUID, stayFrom, stayTo time.Time) ([]schema.BookingEvent, error)
}

// SnapshotStore persists OTB rows with a wholesale per-(hotel, as_of_date)
// replace and answers which as-of dates already exist.
type SnapshotStore interface {
	ReplaceOTB(ctx context.Context, hotelID uuid.UUID, asOfDate time.Time, rows []schema.OTBRow) error
	ListAsOfDates(ctx context.Context, hotelID uuid.UUID) ([]time.Time, error)
}

// Builder assembles OTB snapshots.
type Builder struct {
	events EventSource
	store  SnapshotStore
	log    *logrus.Logger

	// UTC offset for the hotel-local midnight fallback when an event has no
	// explicit booking timestamp.
	utcOffsetHours int
}

// NewBuilder creates a snapshot builder with the given hotel-local UTC offset.
func NewBuilder(events EventSource, store SnapshotStore, offsetHours int, log *logrus.Logger) *Builder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Builder{events: events, store: store, utcOffsetHours: offsetHours, log: log}
}

// BuildResult summarizes one snapshot build.
type BuildResult struct {
	AsOfDate     time.Time `json:"as_of_date"`
	RowsWritten  int       `json:"rows_written"`
	Reservations int       `json:"reservations"`
	TotalRooms   int       `json:"total_rooms"`
	Empty        bool      `json:"empty"`
}

// Build materializes the snapshot for (hotelID, asOf) over the stay range
// [stayFrom, stayTo). An empty surviving reservation set is a valid result,
// not an error.
func (b *Builder) Build(ctx context.Context, hotelID uuid.UUID, asOf time.Time, stayFrom, stayTo time.Time) (*BuildResult, error) {
	if !stayFrom.Before(stayTo) {
		return nil, fmt.Errorf("invalid stay range: from %s must precede to %s",
			stayFrom.Format("2006-01-02"), stayTo.Format("2006-01-02"))
	}

	asOfDate := dateutil.Date(asOf)
	cutoff := dateutil.CutoffAfter(asOf)

	versions, err := b.events.EventsOverlapping(ctx, hotelID, stayFrom, stayTo)
	if err != nil {
		return nil, fmt.Errorf("fetch booking events: %w", err)
	}

	active := DeduplicateAsOf(versions, cutoff, b.utcOffsetHours)

	byStay := make(map[time.Time]*schema.OTBRow)
	for _, ev := range active {
		nights := ev.Nights()
		if nights <= 0 {
			continue
		}
		shares := AllocateRevenue(ev.Revenue, nights)
		for i := 0; i < nights; i++ {
			stay := dateutil.AddDays(ev.ArrivalDate, i)
			row, ok := byStay[stay]
			if !ok {
				row = &schema.OTBRow{
					HotelID:  hotelID,
					AsOfDate: asOfDate,
					StayDate: stay,
				}
				byStay[stay] = row
			}
			row.RoomsOTB += ev.Rooms
			row.RevenueOTB = row.RevenueOTB.Add(shares[i])
		}
	}

	rows := make([]schema.OTBRow, 0, len(byStay))
	for _, row := range byStay {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StayDate.Before(rows[j].StayDate) })

	if err := b.store.ReplaceOTB(ctx, hotelID, asOfDate, rows); err != nil {
		return nil, fmt.Errorf("replace otb snapshot %s: %w", asOfDate.Format("2006-01-02"), err)
	}

	res := &BuildResult{
		AsOfDate:     asOfDate,
		RowsWritten:  len(rows),
		Reservations: len(active),
		Empty:        len(rows) == 0,
	}
	for _, r := range rows {
		res.TotalRooms += r.RoomsOTB
	}

	b.log.WithFields(logrus.Fields{
		"hotel_id":     hotelID,
		"as_of_date":   asOfDate.Format("2006-01-02"),
		"rows":         res.RowsWritten,
		"reservations": res.Reservations,
	}).Info("otb snapshot built")

	return res, nil
}

// DeduplicateAsOf reduces raw event versions to the authoritative active set
// as of the cutoff instant. For each reservation (reservation id, room code)
// it keeps the version with the latest import_snapshot_ts among versions
// whose effective booking time falls strictly before the cutoff, then drops
// it if that version was cancelled before the cutoff.
func DeduplicateAsOf(versions []schema.BookingEvent, cutoff time.Time, offsetHours int) []schema.BookingEvent {
	latest := make(map[string]schema.BookingEvent)
	order := make([]string, 0, len(versions))

	for _, ev := range versions {
		if !EffectiveBookTime(ev, offsetHours).Before(cutoff) {
			continue
		}
		key := ev.ReservationID + "|" + ev.RoomCode
		cur, ok := latest[key]
		if !ok {
			latest[key] = ev
			order = append(order, key)
			continue
		}
		if ev.ImportSnapshotTS.After(cur.ImportSnapshotTS) {
			latest[key] = ev
		}
	}

	out := make([]schema.BookingEvent, 0, len(latest))
	for _, key := range order {
		ev := latest[key]
		if ev.CancelTime != nil && ev.CancelTime.Before(cutoff) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// EffectiveBookTime returns the event's booking timestamp, falling back to
// the booking date at the hotel's local midnight when absent.
func EffectiveBookTime(ev schema.BookingEvent, offsetHours int) time.Time {
	if ev.BookTime != nil {
		return *ev.BookTime
	}
	return dateutil.LocalMidnightUTC(ev.BookingDate, offsetHours)
}

// AllocateRevenue splits a reservation's total revenue across its nights:
// every night gets the floored share and the last night absorbs the
// remainder, so the per-reservation total is conserved exactly.
func AllocateRevenue(total decimal.Decimal, nights int) []decimal.Decimal {
	shares := make([]decimal.Decimal, nights)
	if nights == 1 {
		shares[0] = total
		return shares
	}
	per := total.Div(decimal.NewFromInt(int64(nights))).Floor()
	for i := range shares {
		shares[i] = per
	}
	shares[nights-1] = total.Sub(per.Mul(decimal.NewFromInt(int64(nights - 1))))
	return shares
}
