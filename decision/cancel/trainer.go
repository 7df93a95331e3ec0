package cancel

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hotel-revenue/pkg/confidence"
	"hotel-revenue/pkg/dateutil"
	"hotel-revenue/pkg/schema"
)

// UnknownSegmentWarnPct is the share of room-nights with an unresolvable
// segment above which training surfaces a data-quality warning.
const UnknownSegmentWarnPct = 0.20

// TrainingSource supplies booking-event versions whose booking date falls in
// a window. All versions are returned; the trainer keeps the latest.
type TrainingSource interface {
	EventsBookedBetween(ctx context.Context, hotelID uuid.UUID, from, to time.Time) ([]schema.BookingEvent, error)
}

// BucketWriter persists trained buckets with a wholesale per-hotel replace.
type BucketWriter interface {
	ReplaceCancelBuckets(ctx context.Context, hotelID uuid.UUID, rows []schema.CancelRateBucket) error
}

// Trainer rebuilds a hotel's cancellation-rate buckets from a rolling
// lookback of booking activity.
type Trainer struct {
	source TrainingSource
	writer BucketWriter
	log    *logrus.Logger

	lookbackDays   int
	utcOffsetHours int
}

// NewTrainer creates a trainer over the given lookback window.
func NewTrainer(source TrainingSource, writer BucketWriter, lookbackDays, offsetHours int, log *logrus.Logger) *Trainer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Trainer{source: source, writer: writer, lookbackDays: lookbackDays, utcOffsetHours: offsetHours, log: log}
}

// TrainResult summarizes one training run.
type TrainResult struct {
	Buckets         int      `json:"buckets"`
	RoomNights      int      `json:"room_nights"`
	CancelledNights int      `json:"cancelled_nights"`
	GlobalRate      float64  `json:"global_rate"`
	UnknownPct      float64  `json:"unknown_pct"`
	Warnings        []string `json:"warnings,omitempty"`
}

type bucketKey struct {
	lead    string
	dow     int
	season  string
	segment string
}

type tally struct {
	total     int
	cancelled int
}

func (t tally) rawRate() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.cancelled) / float64(t.total)
}

// Train rebuilds all buckets for the hotel as of now and persists them
// wholesale, including the synthetic hotel-wide default row.
func (t *Trainer) Train(ctx context.Context, hotel schema.Hotel, seasons []schema.SeasonRange, now time.Time) (*TrainResult, error) {
	windowEnd := dateutil.Date(now)
	windowStart := dateutil.AddDays(windowEnd, -t.lookbackDays)

	versions, err := t.source.EventsBookedBetween(ctx, hotel.ID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("fetch training events: %w", err)
	}

	// Latest version per reservation wins; cancelled reservations stay in,
	// they are the signal being modeled.
	latest := make(map[string]schema.BookingEvent)
	for _, ev := range versions {
		key := ev.ReservationID + "|" + ev.RoomCode
		if cur, ok := latest[key]; !ok || ev.ImportSnapshotTS.After(cur.ImportSnapshotTS) {
			latest[key] = ev
		}
	}

	tallies := make(map[bucketKey]tally)
	var total, cancelled, unknown int
	for _, ev := range latest {
		nights := ev.Nights()
		if nights <= 0 || ev.Rooms <= 0 {
			continue
		}
		bookTime := ev.BookingDate
		if ev.BookTime != nil {
			bookTime = *ev.BookTime
		}
		lead := LeadBucketForDays(dateutil.DaysBetween(bookTime, ev.ArrivalDate))
		segment := ev.Segment
		if segment == "" {
			segment = schema.SegmentUnknown
		}
		isCancelled := ev.CancelTime != nil

		for i := 0; i < nights; i++ {
			stay := dateutil.AddDays(ev.ArrivalDate, i)
			key := bucketKey{
				lead:    lead,
				dow:     int(stay.Weekday()),
				season:  SeasonLabelFor(seasons, stay),
				segment: segment,
			}
			tl := tallies[key]
			tl.total += ev.Rooms
			if isCancelled {
				tl.cancelled += ev.Rooms
			}
			tallies[key] = tl

			total += ev.Rooms
			if isCancelled {
				cancelled += ev.Rooms
			}
			if segment == schema.SegmentUnknown {
				unknown += ev.Rooms
			}
		}
	}

	var globalRate float64
	if total > 0 {
		globalRate = float64(cancelled) / float64(total)
	} else {
		globalRate = DefaultCancelRate
	}

	// Aggregate ALL-segment parents per (lead, dow, season).
	parents := make(map[bucketKey]tally)
	for key, tl := range tallies {
		pk := bucketKey{lead: key.lead, dow: key.dow, season: key.season, segment: schema.SegmentAll}
		p := parents[pk]
		p.total += tl.total
		p.cancelled += tl.cancelled
		parents[pk] = p
	}

	rows := make([]schema.CancelRateBucket, 0, len(tallies)+len(parents)+1)
	appendRow := func(key bucketKey, tl tally, rate float64) {
		rows = append(rows, schema.CancelRateBucket{
			HotelID:        hotel.ID,
			LeadBucket:     key.lead,
			DOW:            key.dow,
			SeasonLabel:    key.season,
			Segment:        key.segment,
			CancelRate:     ClampRate(rate),
			RawRate:        tl.rawRate(),
			TotalRooms:     tl.total,
			CancelledRooms: tl.cancelled,
			Confidence:     confidence.FromSampleSize(tl.total, HighSampleMin, MediumSampleMin),
			MappingVersion: MappingVersion,
			WindowStart:    windowStart,
			WindowEnd:      windowEnd,
		})
	}

	for key, p := range parents {
		appendRow(key, p, SmoothRate(p.rawRate(), p.total, globalRate))
	}
	for key, tl := range tallies {
		pk := bucketKey{lead: key.lead, dow: key.dow, season: key.season, segment: schema.SegmentAll}
		appendRow(key, tl, SmoothRate(tl.rawRate(), tl.total, parents[pk].rawRate()))
	}

	// Synthetic hotel-wide default row for worst-case fallback.
	rows = append(rows, schema.CancelRateBucket{
		HotelID:        hotel.ID,
		LeadBucket:     LeadBucketAny,
		DOW:            DOWAny,
		SeasonLabel:    SeasonDefault,
		Segment:        schema.SegmentAll,
		CancelRate:     ClampRate(globalRate),
		RawRate:        globalRate,
		TotalRooms:     total,
		CancelledRooms: cancelled,
		Confidence:     confidence.FromSampleSize(total, HighSampleMin, MediumSampleMin),
		MappingVersion: MappingVersion,
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
	})

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.LeadBucket != b.LeadBucket {
			return a.LeadBucket < b.LeadBucket
		}
		if a.DOW != b.DOW {
			return a.DOW < b.DOW
		}
		if a.SeasonLabel != b.SeasonLabel {
			return a.SeasonLabel < b.SeasonLabel
		}
		return a.Segment < b.Segment
	})

	if err := t.writer.ReplaceCancelBuckets(ctx, hotel.ID, rows); err != nil {
		return nil, fmt.Errorf("replace cancel buckets: %w", err)
	}

	res := &TrainResult{
		Buckets:         len(rows),
		RoomNights:      total,
		CancelledNights: cancelled,
		GlobalRate:      globalRate,
	}
	if total > 0 {
		res.UnknownPct = float64(unknown) / float64(total)
	}
	if res.UnknownPct > UnknownSegmentWarnPct {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%.0f%% of room-nights have an unknown segment; segment-level rates may be unreliable", res.UnknownPct*100))
	}
	for _, w := range res.Warnings {
		t.log.WithField("hotel_id", hotel.ID).Warn(w)
	}

	t.log.WithFields(logrus.Fields{
		"hotel_id":    hotel.ID,
		"buckets":     res.Buckets,
		"room_nights": res.RoomNights,
		"global_rate": fmt.Sprintf("%.3f", res.GlobalRate),
	}).Info("cancellation model trained")

	return res, nil
}
