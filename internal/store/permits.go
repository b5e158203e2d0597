package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

// UpsertResult reports what an upsert batch did to the store. NewRecords
// carries the inserted tickets so callers can fan them out without a second
// query.
type UpsertResult struct {
	Total    int
	Inserted int
	Updated  int

	NewRecords []domain.PermitRecord
}

// Times are stored as RFC3339 UTC text so lexicographic comparison matches
// chronological order. Older databases may carry a handful of other layouts;
// parseTime tries them in turn.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

const permitColumns = `dig_ticket_number, permit_number, request_date, dig_date,
	expiration_date, is_emergency, street_name, street_direction,
	street_number_from, street_number_to, street_suffix, dig_location,
	latitude, longitude, contact_first_name, contact_last_name`

// UpsertPermits writes the batch into the store keyed by dig ticket number.
// Existing tickets are overwritten with the fetched values, so corrections
// published by the portal win. Records without a ticket number are skipped.
func (s *Store) UpsertPermits(ctx context.Context, records []domain.PermitRecord) (UpsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := tx.PrepareContext(ctx, "SELECT 1 FROM permits WHERE dig_ticket_number = ?")
	if err != nil {
		return UpsertResult{}, fmt.Errorf("prepare lookup: %w", err)
	}
	defer func() { _ = exists.Close() }()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO permits (`+permitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dig_ticket_number) DO UPDATE SET
			permit_number = excluded.permit_number,
			request_date = excluded.request_date,
			dig_date = excluded.dig_date,
			expiration_date = excluded.expiration_date,
			is_emergency = excluded.is_emergency,
			street_name = excluded.street_name,
			street_direction = excluded.street_direction,
			street_number_from = excluded.street_number_from,
			street_number_to = excluded.street_number_to,
			street_suffix = excluded.street_suffix,
			dig_location = excluded.dig_location,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			contact_first_name = excluded.contact_first_name,
			contact_last_name = excluded.contact_last_name
	`)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = insert.Close() }()

	var result UpsertResult
	for _, rec := range records {
		if rec.DigTicketNumber == "" {
			continue
		}

		var one int
		err := exists.QueryRowContext(ctx, rec.DigTicketNumber).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			result.Inserted++
			result.NewRecords = append(result.NewRecords, rec)
		case err != nil:
			return UpsertResult{}, fmt.Errorf("lookup ticket %s: %w", rec.DigTicketNumber, err)
		default:
			result.Updated++
		}

		if _, err := insert.ExecContext(ctx, permitArgs(rec)...); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert ticket %s: %w", rec.DigTicketNumber, err)
		}
		result.Total++
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("commit upsert: %w", err)
	}
	return result, nil
}

// ReplaceAll drops every stored ticket and loads the batch in its place.
// Used by the backfill command after a full-dataset download.
func (s *Store) ReplaceAll(ctx context.Context, records []domain.PermitRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM permits"); err != nil {
		return 0, fmt.Errorf("clear permits: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO permits (`+permitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = insert.Close() }()

	loaded := 0
	for _, rec := range records {
		if rec.DigTicketNumber == "" {
			continue
		}
		if _, err := insert.ExecContext(ctx, permitArgs(rec)...); err != nil {
			return 0, fmt.Errorf("insert ticket %s: %w", rec.DigTicketNumber, err)
		}
		loaded++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	return loaded, nil
}

func permitArgs(rec domain.PermitRecord) []any {
	return []any{
		rec.DigTicketNumber,
		rec.PermitNumber,
		formatTime(rec.RequestDate),
		formatTime(rec.DigDate),
		formatTime(rec.ExpirationDate),
		rec.IsEmergency,
		rec.StreetName,
		rec.StreetDirection,
		rec.StreetNumberFrom,
		rec.StreetNumberTo,
		rec.StreetSuffix,
		rec.DigLocation,
		rec.Latitude,
		rec.Longitude,
		rec.ContactFirstName,
		rec.ContactLastName,
	}
}

// PermitsInRange returns every ticket with a dig date in [from, to), oldest
// first.
func (s *Store) PermitsInRange(ctx context.Context, from, to time.Time) ([]domain.PermitRecord, error) {
	query := `
		SELECT ` + permitColumns + `
		FROM permits
		WHERE dig_date >= ? AND dig_date < ?
		ORDER BY dig_date
	`
	rows, err := s.db.QueryContext(ctx, query, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query permits in range: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.PermitRecord
	for rows.Next() {
		rec, err := scanPermit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountPermits returns the total number of stored tickets.
func (s *Store) CountPermits(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM permits").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count permits: %w", err)
	}
	return count, nil
}

// RandomPermitOn returns a uniformly random ticket with a dig date on the
// given day, preferring ones with mappable coordinates when any exist.
// Returns ErrNotFound when the day has no tickets.
func (s *Store) RandomPermitOn(ctx context.Context, day time.Time) (domain.PermitRecord, error) {
	from := formatTime(domain.DateOf(day))
	to := formatTime(domain.DateOf(day).AddDate(0, 0, 1))

	query := `
		SELECT ` + permitColumns + `
		FROM permits
		WHERE dig_date >= ? AND dig_date < ?
			AND latitude != 0 AND longitude != 0
		ORDER BY RANDOM()
		LIMIT 1
	`
	rec, err := scanPermit(s.db.QueryRowContext(ctx, query, from, to))
	if errors.Is(err, sql.ErrNoRows) {
		query = `
			SELECT ` + permitColumns + `
			FROM permits
			WHERE dig_date >= ? AND dig_date < ?
			ORDER BY RANDOM()
			LIMIT 1
		`
		rec, err = scanPermit(s.db.QueryRowContext(ctx, query, from, to))
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PermitRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.PermitRecord{}, fmt.Errorf("query random permit: %w", err)
	}
	return rec, nil
}

// DailyCounts aggregates per-day ticket counts over [from, to) for the trend
// chart.
func (s *Store) DailyCounts(ctx context.Context, from, to time.Time) ([]domain.DayCount, error) {
	query := `
		SELECT substr(dig_date, 1, 10) AS day,
			COUNT(*) AS total,
			COALESCE(SUM(is_emergency), 0) AS emergency
		FROM permits
		WHERE dig_date >= ? AND dig_date < ?
		GROUP BY day
		ORDER BY day
	`
	rows, err := s.db.QueryContext(ctx, query, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []domain.DayCount
	for rows.Next() {
		var day string
		var dc domain.DayCount
		if err := rows.Scan(&day, &dc.Total, &dc.Emergency); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		dc.Date = parseTime(day)
		dc.Regular = dc.Total - dc.Emergency
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

// LastFetch returns the recorded end of the previous fetch window, or the
// zero time when no fetch has run yet.
func (s *Store) LastFetch(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = 'last_fetch'").Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query last fetch: %w", err)
	}
	return parseTime(value), nil
}

// SetLastFetch records the end of the fetch window just processed.
func (s *Store) SetLastFetch(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES ('last_fetch', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, t.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record last fetch: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermit(row rowScanner) (domain.PermitRecord, error) {
	var rec domain.PermitRecord
	var permitNumber, streetName, streetDir, streetSuffix sql.NullString
	var digLocation, firstName, lastName sql.NullString
	var requestDate, digDate, expirationDate sql.NullString

	err := row.Scan(
		&rec.DigTicketNumber,
		&permitNumber,
		&requestDate,
		&digDate,
		&expirationDate,
		&rec.IsEmergency,
		&streetName,
		&streetDir,
		&rec.StreetNumberFrom,
		&rec.StreetNumberTo,
		&streetSuffix,
		&digLocation,
		&rec.Latitude,
		&rec.Longitude,
		&firstName,
		&lastName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PermitRecord{}, err
		}
		return domain.PermitRecord{}, fmt.Errorf("scan permit: %w", err)
	}

	rec.PermitNumber = permitNumber.String
	rec.StreetName = streetName.String
	rec.StreetDirection = streetDir.String
	rec.StreetSuffix = streetSuffix.String
	rec.DigLocation = digLocation.String
	rec.ContactFirstName = firstName.String
	rec.ContactLastName = lastName.String
	rec.RequestDate = parseTime(requestDate.String)
	rec.DigDate = parseTime(digDate.String)
	rec.ExpirationDate = parseTime(expirationDate.String)
	return rec, nil
}
