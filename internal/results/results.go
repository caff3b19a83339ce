// Package results records completed scrapes so they can be listed later.
package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

// Record is one completed scrape.
type Record struct {
	ID        string         `json:"id"`
	Strategy  string         `json:"strategy"`
	URL       string         `json:"url"`
	ScrapedAt time.Time      `json:"scraped_at"`
	Absent    bool           `json:"absent"`
	Result    scraper.Result `json:"result"`
}

// Store persists and lists records.
type Store interface {
	Save(ctx context.Context, record Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close()
}

// IDGenerator mints record IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Recorder stamps records with an ID and time before saving them.
type Recorder struct {
	store  Store
	ids    IDGenerator
	now    func() time.Time
	logger *zap.Logger
}

// NewRecorder builds a Recorder.
func NewRecorder(store Store, ids IDGenerator, logger *zap.Logger) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("result store is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:  store,
		ids:    ids,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}, nil
}

// Record saves the outcome of a successful scrape.
func (r *Recorder) Record(ctx context.Context, strategy, url string, result scraper.Result) (Record, error) {
	id, err := r.ids.NewID()
	if err != nil {
		return Record{}, fmt.Errorf("record id: %w", err)
	}
	rec := Record{
		ID:        id,
		Strategy:  strategy,
		URL:       url,
		ScrapedAt: r.now(),
		Absent:    result.IsAbsent(),
		Result:    result,
	}
	if err := r.store.Save(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("save result %s: %w", id, err)
	}
	r.logger.Debug("result recorded", zap.String("id", id), zap.String("strategy", strategy))
	return rec, nil
}

// Recent lists the newest records first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	recs, err := r.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return recs, nil
}

// Close releases the store.
func (r *Recorder) Close() {
	r.store.Close()
}
