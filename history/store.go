// Package history keeps the convergence records of past sweeps in SQLite, so
// a run can be compared against earlier ones.
package history

import (
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/notargets/impesconv/convergence"
)

const schema = `
CREATE TABLE IF NOT EXISTS sweeps (
	sweep_id    TEXT PRIMARY KEY,
	problem     TEXT NOT NULL,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	sweep_id    TEXT NOT NULL,
	leaf_id     TEXT NOT NULL,
	abscissa    REAL NOT NULL,
	error       REAL NOT NULL,
	rate        REAL,
	FOREIGN KEY (sweep_id) REFERENCES sweeps(sweep_id)
);
`

// SweepInfo summarises one stored sweep.
type SweepInfo struct {
	ID        string
	Problem   string
	StartedAt time.Time
	Records   int
}

// Store manages the sweep history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open history")
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "migrate history")
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// BeginSweep registers a new sweep of problem and returns its identifier.
func (s *Store) BeginSweep(problem string) (id string, err error) {
	id = uuid.New().String()
	_, err = s.db.Exec(`INSERT INTO sweeps (sweep_id, problem, started_at) VALUES (?, ?, ?)`,
		id, problem, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", errors.Wrap(err, "begin sweep")
	}
	return
}

// Record stores one convergence point. A NaN rate is stored as NULL.
func (s *Store) Record(sweepID, leafID string, abscissa, e, rate float64) error {
	r := sql.NullFloat64{Float64: rate, Valid: !math.IsNaN(rate)}
	_, err := s.db.Exec(
		`INSERT INTO records (sweep_id, leaf_id, abscissa, error, rate) VALUES (?, ?, ?, ?, ?)`,
		sweepID, leafID, abscissa, e, r)
	return errors.Wrapf(err, "record %s", leafID)
}

// Records returns the points of a sweep in the order they were recorded.
func (s *Store) Records(sweepID string) (recs []convergence.Record, err error) {
	rows, err := s.db.Query(
		`SELECT leaf_id, abscissa, error, rate FROM records WHERE sweep_id = ? ORDER BY id`, sweepID)
	if err != nil {
		return nil, errors.Wrap(err, "query records")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rec  convergence.Record
			rate sql.NullFloat64
		)
		if err = rows.Scan(&rec.ID, &rec.Abscissa, &rec.Error, &rate); err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		rec.Rate = math.NaN()
		if rate.Valid {
			rec.Rate = rate.Float64
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Sweeps lists stored sweeps, newest first.
func (s *Store) Sweeps() (sweeps []SweepInfo, err error) {
	rows, err := s.db.Query(`
		SELECT s.sweep_id, s.problem, s.started_at, COUNT(r.id)
		FROM sweeps s LEFT JOIN records r ON r.sweep_id = s.sweep_id
		GROUP BY s.sweep_id
		ORDER BY s.started_at DESC, s.rowid DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "query sweeps")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			si      SweepInfo
			started string
		)
		if err = rows.Scan(&si.ID, &si.Problem, &started, &si.Records); err != nil {
			return nil, errors.Wrap(err, "scan sweep")
		}
		si.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		sweeps = append(sweeps, si)
	}
	return sweeps, rows.Err()
}

// Sweep binds a store to one sweep so it can serve as a convergence
// recorder.
type Sweep struct {
	ID    string
	store *Store
}

func (s *Store) Sweep(problem string) (*Sweep, error) {
	id, err := s.BeginSweep(problem)
	if err != nil {
		return nil, err
	}
	return &Sweep{ID: id, store: s}, nil
}

func (sw *Sweep) Record(id string, abscissa, e, rate float64) error {
	return sw.store.Record(sw.ID, id, abscissa, e, rate)
}

var _ convergence.Recorder = (*Sweep)(nil)
