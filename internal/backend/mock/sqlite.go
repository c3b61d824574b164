package mock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"kiosk/internal/domain"
	"kiosk/pkg/platform/sentinel"
	"kiosk/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	type             TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	date             DATETIME NOT NULL,
	location         TEXT NOT NULL DEFAULT '',
	capacity         INTEGER NOT NULL CHECK (capacity > 0),
	registered_count INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL,
	price            REAL NOT NULL DEFAULT 0,
	image            TEXT NOT NULL DEFAULT '',
	duration_minutes INTEGER NOT NULL DEFAULT 0,
	organizer        TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS visitors (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	phone         TEXT NOT NULL,
	age           INTEGER NOT NULL,
	gender        TEXT NOT NULL,
	registered_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS registrations (
	id                TEXT PRIMARY KEY,
	event_id          TEXT NOT NULL REFERENCES events(id),
	visitor_id        TEXT NOT NULL REFERENCES visitors(id),
	confirmation_code TEXT NOT NULL UNIQUE,
	registered_at     DATETIME NOT NULL,
	status            TEXT NOT NULL,
	checked_in_at     DATETIME
);`

// SQLiteStore persists mock data in an embedded SQLite database, so an offline
// kiosk keeps its registrations across restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
// Use "file::memory:?cache=shared" for throwaway databases.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const eventColumns = `id, title, description, type, category, date, location, capacity,
	registered_count, status, price, image, duration_minutes, organizer`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (domain.Event, error) {
	var e domain.Event
	var status string
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Type, &e.Category, &e.Date, &e.Location,
		&e.Capacity, &e.RegisteredCount, &status, &e.Price, &e.Image, &e.DurationMinutes, &e.Organizer)
	e.Status = domain.EventStatus(status)
	return e, err
}

func (s *SQLiteStore) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) PutEvent(ctx context.Context, e domain.Event) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, description = excluded.description, type = excluded.type,
			category = excluded.category, date = excluded.date, location = excluded.location,
			capacity = excluded.capacity, registered_count = excluded.registered_count,
			status = excluded.status, price = excluded.price, image = excluded.image,
			duration_minutes = excluded.duration_minutes, organizer = excluded.organizer`,
		e.ID, e.Title, e.Description, e.Type, e.Category, e.Date.UTC(), e.Location, e.Capacity,
		e.RegisteredCount, string(e.Status), e.Price, e.Image, e.DurationMinutes, e.Organizer)
	if err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

// Register claims a seat with a conditional update so capacity holds even when
// several kiosks register at once.
func (s *SQLiteStore) Register(ctx context.Context, v domain.Visitor, r domain.Registration) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Conn(ctx, s.db)
		res, err := q.ExecContext(ctx, `
			UPDATE events SET registered_count = registered_count + 1
			WHERE id = ? AND registered_count < capacity AND status != ?`,
			r.EventID, string(domain.EventFinished))
		if err != nil {
			return fmt.Errorf("claim seat: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("claim seat: %w", err)
		}
		if n == 0 {
			// Work out why the seat could not be claimed.
			event, err := s.GetEvent(ctx, r.EventID)
			if err != nil {
				return err
			}
			if event.IsFinished() {
				return ErrEventFinished
			}
			return ErrEventFull
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO visitors (id, name, email, phone, age, gender, registered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			v.ID, v.Name, v.Email, v.Phone, v.Age, string(v.Gender), v.RegisteredAt.UTC())
		if err != nil {
			return fmt.Errorf("insert visitor: %w", err)
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO registrations (id, event_id, visitor_id, confirmation_code, registered_at, status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.EventID, r.VisitorID, r.ConfirmationCode, r.RegisteredAt.UTC(), string(r.Status))
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert registration: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(1) FROM registrations WHERE confirmation_code = ?`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("code exists: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) FindByCode(ctx context.Context, code string) (domain.Registration, domain.Visitor, error) {
	var (
		r         domain.Registration
		v         domain.Visitor
		rStatus   string
		gender    string
		checkedIn sql.NullTime
	)
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT r.id, r.event_id, r.visitor_id, r.confirmation_code, r.registered_at, r.status, r.checked_in_at,
		       v.id, v.name, v.email, v.phone, v.age, v.gender, v.registered_at
		FROM registrations r JOIN visitors v ON v.id = r.visitor_id
		WHERE r.confirmation_code = ?`, code).Scan(
		&r.ID, &r.EventID, &r.VisitorID, &r.ConfirmationCode, &r.RegisteredAt, &rStatus, &checkedIn,
		&v.ID, &v.Name, &v.Email, &v.Phone, &v.Age, &gender, &v.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Registration{}, domain.Visitor{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.Registration{}, domain.Visitor{}, fmt.Errorf("find by code: %w", err)
	}
	r.Status = domain.RegistrationStatus(rStatus)
	v.Gender = domain.Gender(gender)
	if checkedIn.Valid {
		at := checkedIn.Time
		r.CheckedInAt = &at
	}
	return r, v, nil
}

// MarkCheckedIn flips a confirmed registration to checked-in exactly once.
func (s *SQLiteStore) MarkCheckedIn(ctx context.Context, code string, at time.Time) (domain.Registration, error) {
	var r domain.Registration
	var alreadyUsed bool
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
			UPDATE registrations SET status = ?, checked_in_at = ?
			WHERE confirmation_code = ? AND status = ?`,
			string(domain.RegistrationCheckedIn), at.UTC(), code, string(domain.RegistrationConfirmed))
		if err != nil {
			return fmt.Errorf("check in: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("check in: %w", err)
		}
		alreadyUsed = n == 0
		r, _, err = s.FindByCode(ctx, code)
		return err
	})
	if err != nil {
		return domain.Registration{}, err
	}
	if alreadyUsed {
		return r, sentinel.ErrAlreadyUsed
	}
	return r, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (domain.VisitorStats, error) {
	visitors, err := s.allVisitors(ctx)
	if err != nil {
		return domain.VisitorStats{}, err
	}
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `SELECT event_id, status FROM registrations`)
	if err != nil {
		return domain.VisitorStats{}, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		var r domain.Registration
		var status string
		if err := rows.Scan(&r.EventID, &status); err != nil {
			return domain.VisitorStats{}, fmt.Errorf("stats: %w", err)
		}
		r.Status = domain.RegistrationStatus(status)
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return domain.VisitorStats{}, fmt.Errorf("stats: %w", err)
	}
	return buildStats(visitors, regs), nil
}

func (s *SQLiteStore) allVisitors(ctx context.Context) ([]domain.Visitor, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `SELECT id, gender FROM visitors`)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	defer rows.Close()

	var visitors []domain.Visitor
	for rows.Next() {
		var v domain.Visitor
		var gender string
		if err := rows.Scan(&v.ID, &gender); err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		v.Gender = domain.Gender(gender)
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ Store = (*SQLiteStore)(nil)
