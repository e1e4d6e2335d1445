package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
)

type DiscrepancyRepo struct {
	db DBTX
}

func NewDiscrepancyRepo(db *sql.DB) *DiscrepancyRepo {
	return &DiscrepancyRepo{db: db}
}

func (r *DiscrepancyRepo) WithTx(tx *sql.Tx) *DiscrepancyRepo {
	return &DiscrepancyRepo{db: tx}
}

// ClearAll wipes previous audit findings so a fresh pass reports a
// consistent view.
func (r *DiscrepancyRepo) ClearAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM discrepancies"); err != nil {
		return fmt.Errorf("clear discrepancies: %w", err)
	}
	return nil
}

func (r *DiscrepancyRepo) BulkInsert(ctx context.Context, discs []domain.Discrepancy) (int, error) {
	inserted := 0
	for i := range discs {
		d := &discs[i]
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO discrepancies
			 (id, type, owner_id, entity_id, expected, actual, difference,
			  severity, description, detected_at)
			 VALUES (?,?,?,?,?,?,?,?,?,?)`,
			d.ID, string(d.Type), d.OwnerID, d.EntityID,
			d.Expected.String(), d.Actual.String(), d.Difference.String(),
			string(d.Severity), d.Description, d.DetectedAt.Format(time.RFC3339))
		if err != nil {
			return inserted, fmt.Errorf("insert discrepancy %s: %w", d.ID, err)
		}
		inserted++
	}
	return inserted, nil
}

type DiscrepancyFilter struct {
	Type     string
	Severity string
	Page     int
	Limit    int
}

func (r *DiscrepancyRepo) List(ctx context.Context, f DiscrepancyFilter) ([]domain.Discrepancy, int, error) {
	where := ""
	var args []any
	switch {
	case f.Type != "" && f.Severity != "":
		where = " WHERE type = ? AND severity = ?"
		args = append(args, f.Type, f.Severity)
	case f.Type != "":
		where = " WHERE type = ?"
		args = append(args, f.Type)
	case f.Severity != "":
		where = " WHERE severity = ?"
		args = append(args, f.Severity)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM discrepancies"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, owner_id, entity_id, expected, actual, difference,
		        severity, description, detected_at
		 FROM discrepancies`+where+` ORDER BY detected_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var discs []domain.Discrepancy
	for rows.Next() {
		var (
			d          domain.Discrepancy
			typ        string
			ownerID    sql.NullString
			entityID   sql.NullString
			expected   string
			actual     string
			difference string
			severity   string
			detected   string
		)
		err := rows.Scan(&d.ID, &typ, &ownerID, &entityID, &expected, &actual,
			&difference, &severity, &d.Description, &detected)
		if err != nil {
			return nil, 0, fmt.Errorf("scan discrepancy: %w", err)
		}
		d.Type = domain.DiscrepancyType(typ)
		d.OwnerID = ownerID.String
		d.EntityID = entityID.String
		d.Severity = domain.Severity(severity)
		for _, p := range []struct {
			raw string
			dst *decimal.Decimal
		}{
			{expected, &d.Expected}, {actual, &d.Actual}, {difference, &d.Difference},
		} {
			v, err := decimal.NewFromString(p.raw)
			if err != nil {
				return nil, 0, fmt.Errorf("parse amount %q: %w", p.raw, err)
			}
			*p.dst = v
		}
		d.DetectedAt, _ = time.Parse(time.RFC3339, detected)
		discs = append(discs, d)
	}
	return discs, total, rows.Err()
}

// Summary groups current findings by severity.
type DiscrepancySummary struct {
	TotalCount int            `json:"total_count"`
	BySeverity map[string]int `json:"by_severity"`
	ByType     map[string]int `json:"by_type"`
}

func (r *DiscrepancyRepo) GetSummary(ctx context.Context) (*DiscrepancySummary, error) {
	s := &DiscrepancySummary{
		BySeverity: make(map[string]int),
		ByType:     make(map[string]int),
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT type, severity, COUNT(*) FROM discrepancies GROUP BY type, severity")
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var typ, sev string
		var count int
		if err := rows.Scan(&typ, &sev, &count); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.TotalCount += count
		s.BySeverity[sev] += count
		s.ByType[typ] += count
	}
	return s, rows.Err()
}
