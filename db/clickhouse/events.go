// Package clickhouse stores the append-only booking-event feed. Every
// correction to a reservation arrives as a new version row; point-in-time
// queries pick the authoritative version by import_snapshot_ts. Optimized
// for columnar scans over long booking histories.
package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"hotel-revenue/pkg/schema"
)

// Config holds ClickHouse connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "revenue",
		Username: "default",
		Password: "",
		Debug:    false,
	}
}

// Store reads and writes booking events.
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore connects to ClickHouse.
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the booking_events table if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS booking_events (
			hotel_id UUID,
			reservation_id String,
			room_code String,
			arrival_date Date,
			departure_date Date,
			rooms Int32,
			revenue Decimal(18, 2),
			booking_date Date,
			book_time Nullable(DateTime('UTC')),
			cancel_time Nullable(DateTime('UTC')),
			segment LowCardinality(String),
			import_snapshot_ts DateTime('UTC')
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(arrival_date)
		ORDER BY (hotel_id, arrival_date, reservation_id, import_snapshot_ts)
	`
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create booking_events: %w", err)
	}
	return nil
}

const eventColumns = `
	hotel_id, reservation_id, room_code, arrival_date, departure_date,
	rooms, revenue, booking_date, book_time, cancel_time, segment, import_snapshot_ts
`

// InsertEvents appends a batch of event versions. Existing versions are
// never updated; corrections arrive as new rows.
func (s *Store) InsertEvents(ctx context.Context, events []schema.BookingEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO booking_events ("+eventColumns+")")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, ev := range events {
		if err := batch.Append(
			ev.HotelID, ev.ReservationID, ev.RoomCode, ev.ArrivalDate, ev.DepartureDate,
			int32(ev.Rooms), ev.Revenue, ev.BookingDate, ev.BookTime, ev.CancelTime,
			ev.Segment, ev.ImportSnapshotTS,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}
	return batch.Send()
}

// EventsOverlapping returns every version of every reservation whose stay
// interval overlaps [stayFrom, stayTo).
func (s *Store) EventsOverlapping(ctx context.Context, hotelID uuid.UUID, stayFrom, stayTo time.Time) ([]schema.BookingEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM booking_events
		WHERE hotel_id = ? AND arrival_date < ? AND departure_date > ?
		ORDER BY reservation_id, import_snapshot_ts
	`
	return s.queryEvents(ctx, query, hotelID, stayTo, stayFrom)
}

// EventsBookedBetween returns every version with a booking date in
// [from, to], used as a model-training window.
func (s *Store) EventsBookedBetween(ctx context.Context, hotelID uuid.UUID, from, to time.Time) ([]schema.BookingEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM booking_events
		WHERE hotel_id = ? AND booking_date >= ? AND booking_date <= ?
		ORDER BY reservation_id, import_snapshot_ts
	`
	return s.queryEvents(ctx, query, hotelID, from, to)
}

// BookingDateRange returns the earliest and latest booking dates known for
// the hotel. sql.ErrNoRows when the hotel has no events.
func (s *Store) BookingDateRange(ctx context.Context, hotelID uuid.UUID) (first, last time.Time, err error) {
	query := `
		SELECT min(booking_date), max(booking_date), count()
		FROM booking_events
		WHERE hotel_id = ?
	`
	row := s.conn.QueryRow(ctx, query, hotelID)
	var count uint64
	if err := row.Scan(&first, &last, &count); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to get booking date range: %w", err)
	}
	if count == 0 {
		return time.Time{}, time.Time{}, sql.ErrNoRows
	}
	return first, last, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...interface{}) ([]schema.BookingEvent, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking events: %w", err)
	}
	defer rows.Close()

	var events []schema.BookingEvent
	for rows.Next() {
		var ev schema.BookingEvent
		var roomsRaw int32
		if err := rows.Scan(
			&ev.HotelID, &ev.ReservationID, &ev.RoomCode, &ev.ArrivalDate, &ev.DepartureDate,
			&roomsRaw, &ev.Revenue, &ev.BookingDate, &ev.BookTime, &ev.CancelTime,
			&ev.Segment, &ev.ImportSnapshotTS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking event: %w", err)
		}
		ev.Rooms = int(roomsRaw)
		events = append(events, ev)
	}
	return events, rows.Err()
}
