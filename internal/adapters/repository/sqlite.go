package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/echelon/internal/domain/model"
)

const (
	dateFormat = "2006-01-02"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// every store method works identically inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Store and TxRunner over a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
	q  querier

	cacheSizePages int
	journalMode    string
}

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithCacheSize sets the sqlite page-cache size in pages.
func WithCacheSize(pages int) Option {
	return func(s *SQLiteStore) {
		if pages > 0 {
			s.cacheSizePages = pages
		}
	}
}

// WithJournalMode sets the sqlite journal mode (e.g. WAL, OFF).
func WithJournalMode(mode string) Option {
	return func(s *SQLiteStore) {
		if mode != "" {
			s.journalMode = mode
		}
	}
}

// New opens (or creates) the database at path and applies pragmas and
// pending migrations.
func New(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{
		db:             db,
		cacheSizePages: 10000,
		journalMode:    "WAL",
	}
	s.q = db
	for _, opt := range opts {
		opt(s)
	}

	pragmas := fmt.Sprintf(`
		PRAGMA foreign_keys = ON;
		PRAGMA cache_size = %d;
		PRAGMA journal_mode = %s;
		PRAGMA busy_timeout = 10000;
	`, s.cacheSizePages, s.journalMode)
	if _, err := db.Exec(pragmas); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := s.migrateUp(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InTx runs fn against a store bound to one transaction. Any error, or a
// panic, rolls the transaction back.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(Store) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	bound := &SQLiteStore{db: s.db, q: tx}
	return fn(bound)
}

func disciplineFilter(discipline string) (string, []any, error) {
	events, ok := model.DisciplineMap[discipline]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownDiscipline, discipline)
	}
	marks := make([]string, len(events))
	args := make([]any, len(events))
	for i, e := range events {
		marks[i] = "?"
		args[i] = e
	}
	return strings.Join(marks, ","), args, nil
}

func encodeCategories(c model.CategorySet) string {
	data, err := json.Marshal(c)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeCategories(raw string) model.CategorySet {
	var c model.CategorySet
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return model.CategorySet{}
	}
	return c
}

func (s *SQLiteStore) SavePerson(ctx context.Context, p model.Person) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT OR REPLACE INTO people (id, first_name, last_name) VALUES (?, ?, ?)`,
		p.ID, p.FirstName, p.LastName)
	return err
}

func (s *SQLiteStore) SaveEvent(ctx context.Context, e model.Event) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT OR REPLACE INTO events (id, name, discipline, year) VALUES (?, ?, ?, ?)`,
		e.ID, e.Name, e.Discipline, e.Year)
	return err
}

func (s *SQLiteStore) SaveRace(ctx context.Context, r model.Race) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT OR REPLACE INTO races (id, event_id, name, date, created, categories, starters)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.EventID, r.Name, r.Date.Format(dateFormat), r.Created.UTC().Format(time.RFC3339),
		encodeCategories(r.Categories), r.Starters)
	return err
}

func (s *SQLiteStore) SaveResult(ctx context.Context, r model.Result) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (id, race_id, person_id, place, elapsed_time, laps)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.RaceID, r.PersonID, r.Place, r.ElapsedTime, r.Laps)
	return err
}

func (s *SQLiteStore) QualifyingRaces(ctx context.Context, discipline string) ([]RaceResults, error) {
	marks, args, err := disciplineFilter(discipline)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT r.id, r.event_id, r.name, r.date, r.created, r.categories, r.starters,
		       e.name, e.discipline
		FROM races r
		JOIN events e ON e.id = r.event_id
		WHERE e.discipline IN (%s) AND r.categories != '[]'
		ORDER BY r.date ASC, r.created ASC, r.id ASC`, marks)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var races []RaceResults
	for rows.Next() {
		var (
			rr           RaceResults
			date, create string
			cats         string
		)
		if err := rows.Scan(&rr.Race.ID, &rr.Race.EventID, &rr.Race.Name, &date, &create,
			&cats, &rr.Race.Starters, &rr.EventName, &rr.EventDiscipline); err != nil {
			return nil, err
		}
		if rr.Race.Date, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("race %d date: %w", rr.Race.ID, err)
		}
		if rr.Race.Created, err = time.Parse(time.RFC3339, create); err != nil {
			return nil, fmt.Errorf("race %d created: %w", rr.Race.ID, err)
		}
		rr.Race.Categories = decodeCategories(cats)
		races = append(races, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range races {
		if races[i].Results, err = s.resultsForRace(ctx, races[i].Race.ID); err != nil {
			return nil, err
		}
	}
	return races, nil
}

func (s *SQLiteStore) resultsForRace(ctx context.Context, raceID int) ([]model.Result, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, race_id, person_id, place, elapsed_time, laps
		FROM results WHERE race_id = ? ORDER BY id ASC`, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Result
	for rows.Next() {
		var r model.Result
		if err := rows.Scan(&r.ID, &r.RaceID, &r.PersonID, &r.Place, &r.ElapsedTime, &r.Laps); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ResultRows(ctx context.Context, discipline string) ([]ResultRow, error) {
	marks, args, err := disciplineFilter(discipline)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT res.id, p.id, p.first_name, p.last_name, res.place,
		       r.id, r.name, r.date, r.created, r.categories, r.starters,
		       e.id, e.name, e.discipline
		FROM results res
		JOIN people p ON p.id = res.person_id
		JOIN races r ON r.id = res.race_id
		JOIN events e ON e.id = r.event_id
		WHERE e.discipline IN (%s)
		ORDER BY p.last_name COLLATE NOCASE ASC, p.first_name COLLATE NOCASE ASC, p.id ASC,
		         r.date ASC, r.created ASC, res.id ASC`, marks)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var (
			row          ResultRow
			date, create string
			cats         string
		)
		if err := rows.Scan(&row.ResultID, &row.PersonID, &row.FirstName, &row.LastName, &row.Place,
			&row.RaceID, &row.RaceName, &date, &create, &cats, &row.Starters,
			&row.EventID, &row.EventName, &row.EventDiscipline); err != nil {
			return nil, err
		}
		if row.RaceDate, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("result %d race date: %w", row.ResultID, err)
		}
		row.RaceCategories = decodeCategories(cats)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRatings(ctx context.Context, discipline string) error {
	marks, args, err := disciplineFilter(discipline)
	if err != nil {
		return err
	}

	if _, err := s.q.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM ranks WHERE result_id IN (
			SELECT res.id FROM results res
			JOIN races r ON r.id = res.race_id
			JOIN events e ON e.id = r.event_id
			WHERE e.discipline IN (%s))`, marks), args...); err != nil {
		return err
	}

	_, err = s.q.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM qualities WHERE race_id IN (
			SELECT r.id FROM races r
			JOIN events e ON e.id = r.event_id
			WHERE e.discipline IN (%s))`, marks), args...)
	return err
}

func (s *SQLiteStore) DeletePoints(ctx context.Context, discipline string) error {
	marks, args, err := disciplineFilter(discipline)
	if err != nil {
		return err
	}

	_, err = s.q.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM points WHERE result_id IN (
			SELECT res.id FROM results res
			JOIN races r ON r.id = res.race_id
			JOIN events e ON e.id = r.event_id
			WHERE e.discipline IN (%s))`, marks), args...)
	return err
}

func (s *SQLiteStore) SaveQuality(ctx context.Context, q model.Quality) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT OR REPLACE INTO qualities (race_id, value, points_per_place) VALUES (?, ?, ?)`,
		q.RaceID, q.Value, q.PointsPerPlace)
	return err
}

func (s *SQLiteStore) SaveRanks(ctx context.Context, ranks []model.Rank) error {
	for _, r := range ranks {
		if _, err := s.q.ExecContext(ctx,
			`INSERT OR REPLACE INTO ranks (result_id, value) VALUES (?, ?)`,
			r.ResultID, r.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SavePoints(ctx context.Context, p model.Points) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO points (result_id, value, sum_value, sum_categories, notes, needs_upgrade)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ResultID, p.Value, p.Sum, encodeCategories(p.Categories), p.Notes, boolToInt(p.NeedsUpgrade))
	return err
}

func (s *SQLiteStore) QualityForRace(ctx context.Context, raceID int) (model.Quality, error) {
	var q model.Quality
	err := s.q.QueryRowContext(ctx,
		`SELECT race_id, value, points_per_place FROM qualities WHERE race_id = ?`, raceID).
		Scan(&q.RaceID, &q.Value, &q.PointsPerPlace)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Quality{}, fmt.Errorf("quality for race %d: %w", raceID, ErrNotFound)
	}
	return q, err
}

func (s *SQLiteStore) RankForResult(ctx context.Context, resultID int) (model.Rank, error) {
	var r model.Rank
	err := s.q.QueryRowContext(ctx,
		`SELECT result_id, value FROM ranks WHERE result_id = ?`, resultID).
		Scan(&r.ResultID, &r.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Rank{}, fmt.Errorf("rank for result %d: %w", resultID, ErrNotFound)
	}
	return r, err
}

func (s *SQLiteStore) PointsForResult(ctx context.Context, resultID int) (model.Points, error) {
	var (
		p    model.Points
		cats string
		flag int
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT result_id, value, sum_value, sum_categories, notes, needs_upgrade
		FROM points WHERE result_id = ?`, resultID).
		Scan(&p.ResultID, &p.Value, &p.Sum, &cats, &p.Notes, &flag)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Points{}, fmt.Errorf("points for result %d: %w", resultID, ErrNotFound)
	}
	if err != nil {
		return model.Points{}, err
	}
	p.Categories = decodeCategories(cats)
	p.NeedsUpgrade = flag != 0
	return p, nil
}

func (s *SQLiteStore) PendingUpgrades(ctx context.Context, discipline string, since time.Time) ([]PendingUpgrade, error) {
	marks, args, err := disciplineFilter(discipline)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.first_name, p.last_name, pt.sum_categories, pt.sum_value,
		       MAX(r.date) AS last_date, e.discipline
		FROM points pt
		JOIN results res ON res.id = pt.result_id
		JOIN people p ON p.id = res.person_id
		JOIN races r ON r.id = res.race_id
		JOIN events e ON e.id = r.event_id
		WHERE r.date >= ? AND e.discipline IN (%s)
		GROUP BY p.id
		HAVING pt.needs_upgrade = 1
		ORDER BY pt.sum_categories ASC, pt.sum_value DESC,
		         p.last_name COLLATE NOCASE ASC, p.first_name COLLATE NOCASE ASC`, marks)

	queryArgs := append([]any{since.Format(dateFormat)}, args...)
	rows, err := s.q.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingUpgrade
	for rows.Next() {
		var (
			u    PendingUpgrade
			cats string
			date string
		)
		if err := rows.Scan(&u.PersonID, &u.FirstName, &u.LastName, &cats, &u.Sum, &date, &u.EventDiscipline); err != nil {
			return nil, err
		}
		if u.LastRaceDate, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("pending upgrade for person %d: %w", u.PersonID, err)
		}
		u.Categories = decodeCategories(cats)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SnapshotsByPerson(ctx context.Context, personID int) ([]model.Snapshot, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT person_id, date, license, mtb_category, dh_category, ccx_category, road_category, track_category
		FROM person_snapshots WHERE person_id = ? ORDER BY date ASC, id ASC`, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var (
			snap model.Snapshot
			date string
		)
		if err := rows.Scan(&snap.PersonID, &date, &snap.License, &snap.MTB, &snap.DH,
			&snap.CCX, &snap.Road, &snap.Track); err != nil {
			return nil, err
		}
		if snap.Date, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("snapshot for person %d: %w", personID, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO person_snapshots (person_id, date, license, mtb_category, dh_category, ccx_category, road_category, track_category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.PersonID, snap.Date.Format(dateFormat), snap.License, snap.MTB, snap.DH, snap.CCX, snap.Road, snap.Track)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
