// Package scrape composes the paginator and the snapshot store into one
// sequential scrape run: fetch every page, reconcile every record, fetch
// detail rows for anything new or changed, record the run.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vacwatch/vacwatch/pkg/bemlo"
	"github.com/vacwatch/vacwatch/pkg/notify"
	"github.com/vacwatch/vacwatch/pkg/storage"
)

// ErrRunInProgress is returned when a run is triggered while another one is
// still active. Second triggers are rejected, not queued.
var ErrRunInProgress = errors.New("scrape: a run is already in progress")

const (
	// Caps on the lists carried in a run summary.
	maxNewInSummary     = 50
	maxUpdatesInSummary = 10
	maxWebhookLines     = 5
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Config holds everything an Orchestrator needs for its runs.
type Config struct {
	Paginator *bemlo.Paginator
	Client    *bemlo.Client // used for per-record detail fetches
	DB        *storage.DB
	Webhook   *notify.Webhook // optional
	Log       Logger          // optional; nil = no logging

	// FetchDetails enables the secondary detail fetch for new and updated
	// records.
	FetchDetails bool
}

// NewVacancy is one newly seen record in a run summary.
type NewVacancy struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Profession   string  `json:"profession"`
	Municipality string  `json:"municipality"`
	Region       string  `json:"region"`
	Rate         float64 `json:"rate"`
	ScopeHours   float64 `json:"scope_hours"`
	UnitName     string  `json:"unit_name"`
	OrdererName  string  `json:"orderer_name"`
	URL          string  `json:"url"`
}

// Update is one changed record in a run summary.
type Update struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Changes []string `json:"changes"`
}

// Summary is the outcome of one orchestrated run.
type Summary struct {
	StartedAt       time.Time    `json:"timestamp"`
	DurationSeconds float64      `json:"duration_seconds"`
	TotalFetched    int          `json:"total_fetched"`
	NewCount        int          `json:"new_count"`
	UpdatedCount    int          `json:"updated_count"`
	UnchangedCount  int          `json:"unchanged_count"`
	Error           string       `json:"error,omitempty"`
	NewVacancies    []NewVacancy `json:"new_vacancies"`
	Updates         []Update     `json:"updates"`
}

// Orchestrator runs scrapes one at a time. The mutex doubles as the
// single-run guard: it also serializes any shared state underneath
// (the session's Credential is additionally guarded by its own lock).
type Orchestrator struct {
	cfg Config
	mu  sync.Mutex
}

func New(cfg Config) *Orchestrator {
	if cfg.Log == nil {
		cfg.Log = nopLogger{}
	}
	return &Orchestrator{cfg: cfg}
}

// Run performs one scrape. The run is recorded in history whether it
// succeeds or fails; a page-fetch failure aborts the run but keeps the
// counts reached so far, while a per-record detail-fetch failure is logged
// and skipped.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if !o.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.mu.Unlock()

	log := o.cfg.Log
	start := time.Now()
	sum := &Summary{StartedAt: start}

	vacancies, fetchErr := o.cfg.Paginator.FetchAll(ctx)
	sum.TotalFetched = len(vacancies)
	if fetchErr != nil {
		log.Errorf("Page fetch failed: %v", fetchErr)
		sum.Error = fetchErr.Error()
	}

	// Reconcile whatever was fetched before any failure; per-record writes
	// are already committed and stay committed.
	for _, v := range vacancies {
		outcome, err := o.cfg.DB.UpsertVacancy(ctx, v)
		if err != nil {
			log.Errorf("Reconcile failed for %s: %v", v.ID, err)
			sum.Error = err.Error()
			break
		}

		switch outcome.Class {
		case storage.New:
			sum.NewCount++
			if len(sum.NewVacancies) < maxNewInSummary {
				sum.NewVacancies = append(sum.NewVacancies, NewVacancy{
					ID:           v.ID,
					Title:        v.Title,
					Profession:   v.Profession,
					Municipality: v.Municipality,
					Region:       v.Region,
					Rate:         v.ProcuredAmount,
					ScopeHours:   v.ScopeHours,
					UnitName:     v.UnitName,
					OrdererName:  v.OrdererName,
					URL:          v.URL(),
				})
			}
		case storage.Updated:
			sum.UpdatedCount++
			if len(sum.Updates) < maxUpdatesInSummary {
				sum.Updates = append(sum.Updates, Update{ID: v.ID, Title: v.Title, Changes: outcome.ChangedFields})
			}
		default:
			sum.UnchangedCount++
		}

		if o.cfg.FetchDetails && outcome.Class != storage.Unchanged {
			o.fetchDetail(ctx, v.ID, log)
		}
	}

	sum.DurationSeconds = time.Since(start).Seconds()

	if err := o.cfg.DB.InsertRun(ctx, storage.Run{
		StartedAt:       start.Unix(),
		DurationSeconds: sum.DurationSeconds,
		TotalFetched:    sum.TotalFetched,
		NewCount:        sum.NewCount,
		UpdatedCount:    sum.UpdatedCount,
		UnchangedCount:  sum.UnchangedCount,
		Error:           sum.Error,
	}); err != nil {
		log.Warnf("Could not record scrape run: %v", err)
	}

	if sum.Error != "" {
		return sum, errors.New(sum.Error)
	}

	log.Infof("Scrape done in %.1fs: %d fetched, %d new, %d updated, %d unchanged",
		sum.DurationSeconds, sum.TotalFetched, sum.NewCount, sum.UpdatedCount, sum.UnchangedCount)

	if sum.NewCount > 0 {
		o.cfg.Webhook.Send(formatNotification(sum))
	}

	return sum, nil
}

// fetchDetail pulls and stores the nested sub-records for one vacancy.
// Failures here never abort the run.
func (o *Orchestrator) fetchDetail(ctx context.Context, id string, log Logger) {
	detail, err := o.cfg.Client.FetchDetail(ctx, id)
	if err != nil {
		log.Warnf("Detail fetch failed for %s, skipping: %v", id, err)
		return
	}
	if err := o.cfg.DB.ReplaceDetail(ctx, detail); err != nil {
		log.Warnf("Detail store failed for %s, skipping: %v", id, err)
	}
}

func formatNotification(sum *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d new Bemlo vacancies\n", sum.NewCount)
	for i, v := range sum.NewVacancies {
		if i == maxWebhookLines {
			break
		}
		fmt.Fprintf(&b, "- %s - %s @ %s (%g SEK)\n", v.Title, v.Profession, v.Municipality, v.Rate)
	}
	return b.String()
}
