package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/polite-scraper/internal/results"
	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

func TestSaveInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewResultStoreWithPool(mock, "scrape_results")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := results.Record{
		ID:        "0190b6f4-6c1e-7a00-8000-000000000001",
		Strategy:  "example",
		URL:       "https://example.com/",
		ScrapedAt: now,
		Result:    scraper.One(scraper.Record{"title": "Example Domain"}),
	}

	mock.ExpectExec("INSERT INTO scrape_results").
		WithArgs(
			rec.ID,
			rec.Strategy,
			rec.URL,
			rec.ScrapedAt,
			false,
			[]byte(`{"title":"Example Domain"}`),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAbsentStoresNull(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewResultStoreWithPool(mock, "")
	require.NoError(t, err)

	rec := results.Record{ID: "id", Strategy: "waters", URL: "u", Absent: true}
	mock.ExpectExec("INSERT INTO scrape_results").
		WithArgs(rec.ID, rec.Strategy, rec.URL, rec.ScrapedAt, true, []byte("null")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveErrors(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewResultStoreWithPool(mock, "scrape_results")
	require.NoError(t, err)

	require.Error(t, store.Save(context.Background(), results.Record{}))

	mock.ExpectExec("INSERT INTO scrape_results").WillReturnError(errors.New("connection lost"))
	err = store.Save(context.Background(), results.Record{ID: "id"})
	require.ErrorContains(t, err, "connection lost")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentScansRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewResultStoreWithPool(mock, "scrape_results")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rows := pgxmock.NewRows([]string{"id", "strategy", "url", "scraped_at", "absent", "records"}).
		AddRow("b", "gdp", "https://en.wikipedia.org/wiki/x", now, false, []byte(`[{"country":"Japan","gdp":"4,110,452"}]`)).
		AddRow("a", "waters", "https://en.wikipedia.org/wiki/y", now.Add(-time.Minute), true, []byte(`null`))
	mock.ExpectQuery("SELECT (.+) FROM scrape_results").WithArgs(5).WillReturnRows(rows)

	recs, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, scraper.KindRecords, recs[0].Result.Kind())
	require.Equal(t, "Japan", recs[0].Result.Records()[0]["country"])
	require.True(t, recs[1].Absent)
	require.True(t, recs[1].Result.IsAbsent())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewResultStoreWithPool(mock, "scrape_results")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS scrape_results").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewResultStoreValidation(t *testing.T) {
	t.Parallel()

	_, err := NewResultStoreWithPool(nil, "scrape_results")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewResultStoreWithPool(mock, "results; DROP TABLE x")
	require.Error(t, err)

	_, err = NewResultStore(context.Background(), ResultStoreConfig{})
	require.Error(t, err)
}
