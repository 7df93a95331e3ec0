package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-revenue/pkg/schema"
)

var testHotelID = uuid.MustParse("5b1e8f9a-1111-4222-8333-444455556666")

type fakeAppender struct {
	events  []schema.BookingEvent
	batches int
}

func (f *fakeAppender) InsertEvents(_ context.Context, events []schema.BookingEvent) error {
	f.events = append(f.events, events...)
	f.batches++
	return nil
}

func TestImportAcceptsValidRowsAndStamps(t *testing.T) {
	feed := strings.Join([]string{
		`{"reservation_id":"R1","arrival_date":"2025-06-10T00:00:00Z","departure_date":"2025-06-12T00:00:00Z","rooms":2,"revenue":"300","booking_date":"2025-05-01T00:00:00Z","segment":"OTA"}`,
		``,
		`{"reservation_id":"R2","arrival_date":"2025-06-11T00:00:00Z","departure_date":"2025-06-13T00:00:00Z","rooms":1,"revenue":"150","booking_date":"2025-05-02T00:00:00Z"}`,
	}, "\n")

	store := &fakeAppender{}
	importer := NewImporter(store, nil)

	result, err := importer.Import(context.Background(), testHotelID, strings.NewReader(feed))
	require.NoError(t, err)

	assert.Equal(t, 2, result.EventsImported)
	assert.Zero(t, result.RowsSkipped)
	require.Len(t, store.events, 2)

	for _, ev := range store.events {
		assert.Equal(t, testHotelID, ev.HotelID)
		assert.Equal(t, result.ImportSnapshotTS, ev.ImportSnapshotTS, "every row carries the run's stamp")
	}
	assert.Equal(t, schema.SegmentUnknown, store.events[1].Segment, "missing segment defaults to UNKNOWN")
}

func TestImportSkipsBadRowsWithoutFailing(t *testing.T) {
	otherHotel := uuid.MustParse("99999999-9999-4999-8999-999999999999")
	feed := strings.Join([]string{
		`not json at all`,
		`{"reservation_id":"","arrival_date":"2025-06-10T00:00:00Z","departure_date":"2025-06-12T00:00:00Z"}`,
		`{"reservation_id":"R3","arrival_date":"2025-06-12T00:00:00Z","departure_date":"2025-06-12T00:00:00Z"}`,
		`{"hotel_id":"` + otherHotel.String() + `","reservation_id":"R4","arrival_date":"2025-06-10T00:00:00Z","departure_date":"2025-06-12T00:00:00Z"}`,
		`{"reservation_id":"R5","arrival_date":"2025-06-10T00:00:00Z","departure_date":"2025-06-12T00:00:00Z","rooms":1,"revenue":"100","booking_date":"2025-05-01T00:00:00Z"}`,
	}, "\n")

	store := &fakeAppender{}
	importer := NewImporter(store, nil)

	result, err := importer.Import(context.Background(), testHotelID, strings.NewReader(feed))
	require.NoError(t, err)

	assert.Equal(t, 1, result.EventsImported)
	assert.Equal(t, 4, result.RowsSkipped)
	require.Len(t, store.events, 1)
	assert.Equal(t, "R5", store.events[0].ReservationID)
}
