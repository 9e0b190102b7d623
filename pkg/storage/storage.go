package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vacwatch/vacwatch/pkg/bemlo"
)

// ErrNotFound is returned when a vacancy id has no snapshot row.
var ErrNotFound = errors.New("storage: vacancy not found")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS vacancies (
  id                       TEXT PRIMARY KEY,
  title                    TEXT,
  profession               TEXT,
  specializations          TEXT,
  municipality             TEXT,
  region                   TEXT,
  job_starts_at            INTEGER,
  job_ends_at              INTEGER,
  procured_amount          REAL,
  procured_amount_currency TEXT,
  scope_hours              REAL,
  fill_rate                REAL,
  dynamic_status           TEXT,
  tender_id                TEXT,
  tender_title             TEXT,
  unit_id                  TEXT,
  unit_name                TEXT,
  orderer_id               TEXT,
  orderer_name             TEXT,
  last_application_date    INTEGER,
  created_at               INTEGER,
  announced_at             INTEGER,
  scraped_at               INTEGER,
  first_seen_at            INTEGER,
  last_updated_at          INTEGER,
  raw_data                 TEXT
);
CREATE INDEX IF NOT EXISTS idx_vacancies_profession ON vacancies(profession);
CREATE INDEX IF NOT EXISTS idx_vacancies_created ON vacancies(created_at);
CREATE TABLE IF NOT EXISTS scrape_runs (
  id               INTEGER PRIMARY KEY AUTOINCREMENT,
  started_at       INTEGER NOT NULL,
  duration_seconds REAL NOT NULL,
  total_fetched    INTEGER NOT NULL,
  new_count        INTEGER NOT NULL,
  updated_count    INTEGER NOT NULL,
  unchanged_count  INTEGER NOT NULL,
  error            TEXT
);
CREATE TABLE IF NOT EXISTS vacancy_shifts (
  vacancy_id TEXT NOT NULL,
  shift_id   TEXT NOT NULL,
  starts_at  INTEGER,
  ends_at    INTEGER,
  shift_type TEXT,
  is_urgent  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_shifts_vacancy ON vacancy_shifts(vacancy_id);
CREATE TABLE IF NOT EXISTS vacancy_requirements (
  vacancy_id   TEXT NOT NULL,
  req_id       TEXT NOT NULL,
  category     TEXT,
  description  TEXT,
  is_mandatory INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_requirements_vacancy ON vacancy_requirements(vacancy_id);
CREATE TABLE IF NOT EXISTS vacancy_pricing (
  vacancy_id TEXT NOT NULL,
  row_id     TEXT NOT NULL,
  price_type TEXT,
  amount     REAL,
  currency   TEXT
);
CREATE INDEX IF NOT EXISTS idx_pricing_vacancy ON vacancy_pricing(vacancy_id);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// UpsertVacancy reconciles one incoming vacancy against its snapshot row.
// A missing id inserts a full row and classifies New. An existing row is
// compared on the volatile fields only (fill_rate, dynamic_status,
// procured_amount): any difference updates those fields plus scraped_at,
// last_updated_at and raw_data, and classifies Updated with the exact field
// names that differed. first_seen_at is never touched after insert. With no
// difference nothing is written, so reconciling the same vacancy twice
// yields New then Unchanged.
func (d *DB) UpsertVacancy(ctx context.Context, v bemlo.Vacancy) (Outcome, error) {
	now := time.Now().Unix()

	row := d.sql.QueryRowContext(ctx, "SELECT fill_rate, dynamic_status, procured_amount FROM vacancies WHERE id = ?", v.ID)

	var (
		oldFillRate float64
		oldStatus   string
		oldAmount   float64
	)
	err := row.Scan(&oldFillRate, &oldStatus, &oldAmount)
	if err == sql.ErrNoRows {
		_, err = d.sql.ExecContext(ctx, `INSERT INTO vacancies(
  id, title, profession, specializations, municipality, region,
  job_starts_at, job_ends_at, procured_amount, procured_amount_currency,
  scope_hours, fill_rate, dynamic_status, tender_id, tender_title,
  unit_id, unit_name, orderer_id, orderer_name, last_application_date,
  created_at, announced_at, scraped_at, first_seen_at, last_updated_at, raw_data
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			v.ID, v.Title, v.Profession, v.Specializations, v.Municipality, v.Region,
			v.JobStartsAt, v.JobEndsAt, v.ProcuredAmount, v.ProcuredAmountCurrency,
			v.ScopeHours, v.FillRate, v.DynamicStatus, v.TenderID, v.TenderTitle,
			v.UnitID, v.UnitName, v.OrdererID, v.OrdererName, v.LastApplicationDate,
			v.CreatedAt, v.AnnouncedAt, now, now, now, v.Raw)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Class: New}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	var changed []string
	if oldFillRate != v.FillRate {
		changed = append(changed, "fill_rate")
	}
	if oldStatus != v.DynamicStatus {
		changed = append(changed, "dynamic_status")
	}
	if oldAmount != v.ProcuredAmount {
		changed = append(changed, "procured_amount")
	}

	if len(changed) == 0 {
		return Outcome{Class: Unchanged}, nil
	}

	_, err = d.sql.ExecContext(ctx, `UPDATE vacancies SET
  fill_rate = ?, dynamic_status = ?, procured_amount = ?,
  scraped_at = ?, last_updated_at = ?, raw_data = ?
WHERE id = ?`,
		v.FillRate, v.DynamicStatus, v.ProcuredAmount, now, now, v.Raw, v.ID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Class: Updated, ChangedFields: changed}, nil
}

// ReplaceDetail swaps out all child rows for one vacancy id in a single
// transaction: delete-then-insert, full replacement rather than merge, so
// an interrupted write never leaves a partial mix of old and new rows.
func (d *DB) ReplaceDetail(ctx context.Context, detail *bemlo.VacancyDetail) error {
	id := detail.Vacancy.ID

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"vacancy_shifts", "vacancy_requirements", "vacancy_pricing"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE vacancy_id = ?", id); err != nil {
			return err
		}
	}

	for _, s := range detail.Shifts {
		if _, err = tx.ExecContext(ctx, `INSERT INTO vacancy_shifts(vacancy_id, shift_id, starts_at, ends_at, shift_type, is_urgent) VALUES(?,?,?,?,?,?)`,
			id, s.ID, s.StartsAt, s.EndsAt, s.ShiftType, boolToInt(s.IsUrgent)); err != nil {
			return err
		}
	}
	for _, r := range detail.Requirements {
		if _, err = tx.ExecContext(ctx, `INSERT INTO vacancy_requirements(vacancy_id, req_id, category, description, is_mandatory) VALUES(?,?,?,?,?)`,
			id, r.ID, r.Category, r.Description, boolToInt(r.IsMandatory)); err != nil {
			return err
		}
	}
	for _, p := range detail.Pricing {
		if _, err = tx.ExecContext(ctx, `INSERT INTO vacancy_pricing(vacancy_id, row_id, price_type, amount, currency) VALUES(?,?,?,?,?)`,
			id, p.ID, p.Type, p.Amount, p.Currency); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// InsertRun appends one scrape-run history row.
func (d *DB) InsertRun(ctx context.Context, r Run) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO scrape_runs(started_at, duration_seconds, total_fetched, new_count, updated_count, unchanged_count, error) VALUES(?,?,?,?,?,?,?)`,
		r.StartedAt, r.DurationSeconds, r.TotalFetched, r.NewCount, r.UpdatedCount, r.UnchangedCount, nullIfEmpty(r.Error))
	return err
}

// ListRuns returns the most recent scrape runs, newest first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT id, started_at, duration_seconds, total_fetched, new_count, updated_count, unchanged_count, error FROM scrape_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var errNS sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.DurationSeconds, &r.TotalFetched, &r.NewCount, &r.UpdatedCount, &r.UnchangedCount, &errNS); err != nil {
			return nil, err
		}
		r.Error = errNS.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
