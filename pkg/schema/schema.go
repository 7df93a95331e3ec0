// Package schema defines the shared row and configuration types that flow
// between the pipeline stages and the stores. Each derived table is owned by
// exactly one builder; rows here are plain data carriers.
package schema

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hotel-revenue/pkg/confidence"
)

// Segment constants. Segments come from the ingestion feed; the two synthetic
// values below never appear on raw events.
const (
	SegmentAll     = "ALL"
	SegmentUnknown = "UNKNOWN"
)

// BookingEvent is one version of a reservation as delivered by the ingestion
// feed. Multiple versions of the same reservation may exist (corrections);
// ImportSnapshotTS orders them. Read-only here.
type BookingEvent struct {
	HotelID          uuid.UUID       `ch:"hotel_id" json:"hotel_id"`
	ReservationID    string          `ch:"reservation_id" json:"reservation_id"`
	RoomCode         string          `ch:"room_code" json:"room_code,omitempty"`
	ArrivalDate      time.Time       `ch:"arrival_date" json:"arrival_date"`
	DepartureDate    time.Time       `ch:"departure_date" json:"departure_date"`
	Rooms            int             `ch:"rooms" json:"rooms"`
	Revenue          decimal.Decimal `ch:"revenue" json:"revenue"`
	BookingDate      time.Time       `ch:"booking_date" json:"booking_date"`
	BookTime         *time.Time      `ch:"book_time" json:"book_time,omitempty"`
	CancelTime       *time.Time      `ch:"cancel_time" json:"cancel_time,omitempty"`
	Segment          string          `ch:"segment" json:"segment"`
	ImportSnapshotTS time.Time       `ch:"import_snapshot_ts" json:"import_snapshot_ts"`
}

// Nights returns the stay length of the half-open interval
// [ArrivalDate, DepartureDate).
func (e BookingEvent) Nights() int {
	return int(e.DepartureDate.Sub(e.ArrivalDate).Hours() / 24)
}

// OTBRow is one materialized on-the-books aggregate:
// rooms and revenue booked for a stay date, as known at an as-of date.
type OTBRow struct {
	HotelID    uuid.UUID       `json:"hotel_id"`
	AsOfDate   time.Time       `json:"as_of_date"`
	StayDate   time.Time       `json:"stay_date"`
	RoomsOTB   int             `json:"rooms_otb"`
	RevenueOTB decimal.Decimal `json:"revenue_otb"`
}

// PickupSource records how a pickup window was matched against history.
type PickupSource struct {
	Src       string    `json:"src"` // "exact" or "nearest"
	DeltaDays int       `json:"delta"`
	AsOfDate  time.Time `json:"as_of"`
}

// FeatureRow holds the derived features for one (as_of_date, stay_date).
// Pickup and STLY fields are nil when no qualifying snapshot exists; they are
// never defaulted to zero.
type FeatureRow struct {
	HotelID  uuid.UUID `json:"hotel_id"`
	AsOfDate time.Time `json:"as_of_date"`
	StayDate time.Time `json:"stay_date"`

	RoomsOTB   int             `json:"rooms_otb"`
	RevenueOTB decimal.Decimal `json:"revenue_otb"`

	PickupT30 *int `json:"pickup_t30,omitempty"`
	PickupT15 *int `json:"pickup_t15,omitempty"`
	PickupT7  *int `json:"pickup_t7,omitempty"`
	PickupT5  *int `json:"pickup_t5,omitempty"`
	PickupT3  *int `json:"pickup_t3,omitempty"`

	StlyRoomsOTB *int `json:"stly_rooms_otb,omitempty"`
	PaceVsLY     *int `json:"pace_vs_ly,omitempty"`
	StlyIsApprox bool `json:"stly_is_approx"`

	RemainingSupply int  `json:"remaining_supply"`
	DOW             int  `json:"dow"`
	Month           int  `json:"month"`
	IsWeekend       bool `json:"is_weekend"`

	PickupSources map[string]PickupSource `json:"pickup_sources,omitempty"`
}

// CancelRateBucket is one trained cancellation-rate cell. DOW -1 and
// LeadBucket "any" mark the synthetic hotel-wide default row.
type CancelRateBucket struct {
	HotelID        uuid.UUID       `json:"hotel_id"`
	LeadBucket     string          `json:"lead_bucket"`
	DOW            int             `json:"dow"`
	SeasonLabel    string          `json:"season_label"`
	Segment        string          `json:"segment"`
	CancelRate     float64         `json:"cancel_rate"`
	RawRate        float64         `json:"raw_rate"`
	TotalRooms     int             `json:"total_rooms"`
	CancelledRooms int             `json:"cancelled_rooms"`
	Confidence     confidence.Tier `json:"confidence"`
	MappingVersion string          `json:"mapping_version"`
	WindowStart    time.Time       `json:"window_start"`
	WindowEnd      time.Time       `json:"window_end"`
}

// DemandForecastRow is the persisted output of the demand model.
type DemandForecastRow struct {
	HotelID         uuid.UUID       `json:"hotel_id"`
	AsOfDate        time.Time       `json:"as_of_date"`
	StayDate        time.Time       `json:"stay_date"`
	RemainingDemand int             `json:"remaining_demand"`
	Confidence      confidence.Tier `json:"confidence"`
	ModelVersion    string          `json:"model_version"`
	Trace           []string        `json:"trace"`
}

// PriceRecommendationRow is the persisted output of the price optimizer.
type PriceRecommendationRow struct {
	HotelID              uuid.UUID        `json:"hotel_id"`
	AsOfDate             time.Time        `json:"as_of_date"`
	StayDate             time.Time        `json:"stay_date"`
	RecommendedPrice     float64          `json:"recommended_price"`
	Zone                 string           `json:"zone"`
	Multiplier           float64          `json:"multiplier"`
	ExpectedFinalRooms   int              `json:"expected_final_rooms"`
	ProjectedOccupancy   float64          `json:"projected_occupancy"`
	ExpectedGrossRevenue decimal.Decimal  `json:"expected_gross_revenue"`
	ExpectedNetRevenue   *decimal.Decimal `json:"expected_net_revenue,omitempty"`
	UpliftPct            float64          `json:"uplift_pct"`
	Trace                []string         `json:"trace"`
}

// Hotel carries the per-hotel business configuration consumed by the
// pipeline. Loaded from the configuration store, never mutated here.
type Hotel struct {
	ID             uuid.UUID `json:"hotel_id"`
	Name           string    `json:"name"`
	Capacity       int       `json:"capacity"`
	BaseRate       float64   `json:"base_rate"`
	MinRate        float64   `json:"min_rate"`
	MaxRate        float64   `json:"max_rate"`
	MaxStepPct     float64   `json:"max_step_pct"`
	UTCOffsetHours int       `json:"utc_offset_hours"`
}

// SeasonRange is one prioritized seasonal date range (month-day bounds,
// wrap-around allowed). Higher priority wins when ranges overlap.
type SeasonRange struct {
	Code       string  `json:"code"`  // e.g. NORMAL, HIGH, HOLIDAY
	Label      string  `json:"label"` // off_peak, shoulder, peak
	Start      string  `json:"start"` // "MM-DD"
	End        string  `json:"end"`   // "MM-DD"
	Priority   int     `json:"priority"`
	Multiplier float64 `json:"multiplier"`
}
