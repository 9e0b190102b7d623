package storage

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ListOptions controls selection when listing vacancies.
type ListOptions struct {
	Limit      int
	Profession string
}

const vacancyColumns = `id, title, profession, specializations, municipality, region,
  job_starts_at, job_ends_at, procured_amount, procured_amount_currency,
  scope_hours, fill_rate, dynamic_status, tender_id, tender_title,
  unit_id, unit_name, orderer_id, orderer_name, last_application_date,
  created_at, announced_at, scraped_at, first_seen_at, last_updated_at`

func scanVacancy(rows interface{ Scan(...interface{}) error }) (VacancyRow, error) {
	var v VacancyRow
	err := rows.Scan(&v.ID, &v.Title, &v.Profession, &v.Specializations, &v.Municipality, &v.Region,
		&v.JobStartsAt, &v.JobEndsAt, &v.ProcuredAmount, &v.ProcuredAmountCurrency,
		&v.ScopeHours, &v.FillRate, &v.DynamicStatus, &v.TenderID, &v.TenderTitle,
		&v.UnitID, &v.UnitName, &v.OrdererID, &v.OrdererName, &v.LastApplicationDate,
		&v.CreatedAt, &v.AnnouncedAt, &v.ScrapedAt, &v.FirstSeenAt, &v.LastUpdatedAt)
	return v, err
}

// ListVacancies returns snapshot rows matching the filters, newest first.
func (d *DB) ListVacancies(ctx context.Context, opts ListOptions) ([]VacancyRow, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	q := "SELECT " + vacancyColumns + " FROM vacancies"
	args := []interface{}{}
	if opts.Profession != "" {
		q += " WHERE profession = ?"
		args = append(args, opts.Profession)
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VacancyRow
	for rows.Next() {
		v, err := scanVacancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// VacancyWithDetail is one snapshot row plus its child rows.
type VacancyWithDetail struct {
	VacancyRow
	Shifts       []ShiftRow
	Requirements []RequirementRow
	Pricing      []PriceRowRecord
}

// GetVacancy returns one snapshot row with its child rows, or ErrNotFound.
func (d *DB) GetVacancy(ctx context.Context, id string) (*VacancyWithDetail, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT "+vacancyColumns+" FROM vacancies WHERE id = ?", id)
	v, err := scanVacancy(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	out := &VacancyWithDetail{VacancyRow: v}

	shiftRows, err := d.sql.QueryContext(ctx, "SELECT shift_id, starts_at, ends_at, shift_type, is_urgent FROM vacancy_shifts WHERE vacancy_id = ?", id)
	if err != nil {
		return nil, err
	}
	defer shiftRows.Close()
	for shiftRows.Next() {
		s := ShiftRow{VacancyID: id}
		var urgent int
		if err := shiftRows.Scan(&s.ShiftID, &s.StartsAt, &s.EndsAt, &s.ShiftType, &urgent); err != nil {
			return nil, err
		}
		s.IsUrgent = urgent == 1
		out.Shifts = append(out.Shifts, s)
	}
	if err := shiftRows.Err(); err != nil {
		return nil, err
	}

	reqRows, err := d.sql.QueryContext(ctx, "SELECT req_id, category, description, is_mandatory FROM vacancy_requirements WHERE vacancy_id = ?", id)
	if err != nil {
		return nil, err
	}
	defer reqRows.Close()
	for reqRows.Next() {
		r := RequirementRow{VacancyID: id}
		var mandatory int
		if err := reqRows.Scan(&r.ReqID, &r.Category, &r.Description, &mandatory); err != nil {
			return nil, err
		}
		r.IsMandatory = mandatory == 1
		out.Requirements = append(out.Requirements, r)
	}
	if err := reqRows.Err(); err != nil {
		return nil, err
	}

	priceRows, err := d.sql.QueryContext(ctx, "SELECT row_id, price_type, amount, currency FROM vacancy_pricing WHERE vacancy_id = ?", id)
	if err != nil {
		return nil, err
	}
	defer priceRows.Close()
	for priceRows.Next() {
		p := PriceRowRecord{VacancyID: id}
		if err := priceRows.Scan(&p.RowID, &p.PriceType, &p.Amount, &p.Currency); err != nil {
			return nil, err
		}
		out.Pricing = append(out.Pricing, p)
	}
	if err := priceRows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Stats summarizes the database for the stats surfaces.
type Stats struct {
	TotalVacancies int            `json:"total_vacancies"`
	ByProfession   map[string]int `json:"by_profession"`
	ByRegion       map[string]int `json:"by_region"`
	AvgDoctorRate  float64        `json:"avg_doctor_rate"`
	AvgNurseRate   float64        `json:"avg_nurse_rate"`
	RecentRuns     []Run          `json:"recent_runs"`
}

func (d *DB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByProfession: make(map[string]int),
		ByRegion:     make(map[string]int),
	}

	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM vacancies").Scan(&stats.TotalVacancies); err != nil {
		return nil, err
	}

	rows, err := d.sql.QueryContext(ctx, "SELECT profession, COUNT(*) FROM vacancies GROUP BY profession")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p string
		var n int
		if err := rows.Scan(&p, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByProfession[p] = n
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = d.sql.QueryContext(ctx, "SELECT region, COUNT(*) AS n FROM vacancies GROUP BY region ORDER BY n DESC LIMIT 10")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var r string
		var n int
		if err := rows.Scan(&r, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByRegion[r] = n
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for profession, dst := range map[string]*float64{
		"DOCTOR": &stats.AvgDoctorRate,
		"NURSE":  &stats.AvgNurseRate,
	} {
		var avg sql.NullFloat64
		if err := d.sql.QueryRowContext(ctx, "SELECT AVG(procured_amount) FROM vacancies WHERE profession = ?", profession).Scan(&avg); err != nil {
			return nil, err
		}
		*dst = avg.Float64
	}

	stats.RecentRuns, err = d.ListRuns(ctx, 5)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ExportCSV writes the vacancy snapshot as CSV, newest first.
func (d *DB) ExportCSV(ctx context.Context, w io.Writer) error {
	vacancies, err := d.ListVacancies(ctx, ListOptions{Limit: 1 << 20})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "title", "profession", "specializations", "municipality", "region",
		"job_starts_at", "job_ends_at", "procured_amount", "procured_amount_currency",
		"scope_hours", "fill_rate", "dynamic_status", "unit_name", "orderer_name",
		"last_application_date", "created_at", "first_seen_at"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, v := range vacancies {
		rec := []string{
			v.ID, v.Title, v.Profession, v.Specializations, v.Municipality, v.Region,
			strconv.FormatInt(v.JobStartsAt, 10),
			strconv.FormatInt(v.JobEndsAt, 10),
			fmt.Sprintf("%g", v.ProcuredAmount),
			v.ProcuredAmountCurrency,
			fmt.Sprintf("%g", v.ScopeHours),
			fmt.Sprintf("%g", v.FillRate),
			v.DynamicStatus, v.UnitName, v.OrdererName,
			strconv.FormatInt(v.LastApplicationDate, 10),
			strconv.FormatInt(v.CreatedAt, 10),
			strconv.FormatInt(v.FirstSeenAt, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
