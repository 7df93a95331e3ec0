// Package ingestion loads booking-event exports into the ClickHouse feed.
// Each import run stamps every accepted row with one import_snapshot_ts so
// the time-travel dedup can tell import generations apart.
package ingestion

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hotel-revenue/pkg/schema"
)

const batchSize = 1000

// EventAppender receives batches of accepted event rows.
type EventAppender interface {
	InsertEvents(ctx context.Context, events []schema.BookingEvent) error
}

// Importer appends booking-event versions to the feed.
type Importer struct {
	store EventAppender
	log   *logrus.Logger
}

// NewImporter creates an importer over the event store.
func NewImporter(store EventAppender, log *logrus.Logger) *Importer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Importer{store: store, log: log}
}

// ImportResult tracks one import run.
type ImportResult struct {
	ImportSnapshotTS time.Time     `json:"import_snapshot_ts"`
	EventsImported   int           `json:"events_imported"`
	RowsSkipped      int           `json:"rows_skipped"`
	Duration         time.Duration `json:"duration_ns"`
}

// ImportFile reads a JSON-lines export (one BookingEvent per line) and
// appends every valid row for the hotel. Malformed or foreign-hotel rows
// are counted and skipped, never fatal.
func (im *Importer) ImportFile(ctx context.Context, hotelID uuid.UUID, path string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, hotelID, f)
}

// Import reads JSON-lines booking events from r and appends them in batches.
func (im *Importer) Import(ctx context.Context, hotelID uuid.UUID, r io.Reader) (*ImportResult, error) {
	start := time.Now()
	stamp := start.UTC()
	result := &ImportResult{ImportSnapshotTS: stamp}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	batch := make([]schema.BookingEvent, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := im.store.InsertEvents(ctx, batch); err != nil {
			return fmt.Errorf("insert batch at row %d: %w", result.EventsImported, err)
		}
		result.EventsImported += len(batch)
		batch = batch[:0]
		return nil
	}

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev schema.BookingEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			im.log.WithField("line", line).WithError(err).Warn("skipping malformed event row")
			result.RowsSkipped++
			continue
		}
		if ev.HotelID != uuid.Nil && ev.HotelID != hotelID {
			result.RowsSkipped++
			continue
		}
		if ev.ReservationID == "" || !ev.ArrivalDate.Before(ev.DepartureDate) {
			im.log.WithField("line", line).Warn("skipping event with missing id or empty stay interval")
			result.RowsSkipped++
			continue
		}
		ev.HotelID = hotelID
		ev.ImportSnapshotTS = stamp
		if ev.Segment == "" {
			ev.Segment = schema.SegmentUnknown
		}
		batch = append(batch, ev)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read export: %w", err)
	}
	if err := flush(); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	im.log.WithFields(logrus.Fields{
		"hotel_id": hotelID,
		"imported": result.EventsImported,
		"skipped":  result.RowsSkipped,
	}).Info("booking events imported")
	return result, nil
}
