package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Run is one pass of the tracker over a frame source with a fixed
// detector/descriptor/matcher/selector combination.
type Run struct {
	ID             string     `json:"id"`
	Detector       string     `json:"detector"`
	Descriptor     string     `json:"descriptor"`
	Matcher        string     `json:"matcher"`
	Selector       string     `json:"selector"`
	DescriptorKind string     `json:"descriptor_kind"`
	Source         string     `json:"source"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Frames         int        `json:"frames"`
}

// RunRepository provides CRUD operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts r. An empty ID is filled with a new UUID and a zero
// StartedAt with the current time.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO runs (id, detector, descriptor, matcher, selector, descriptor_kind, source, started_at, frames)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Detector, run.Descriptor, run.Matcher, run.Selector, run.DescriptorKind,
		run.Source, run.StartedAt, run.Frames,
	)
	return err
}

// Finish records the end time and the number of processed frames.
func (r *RunRepository) Finish(id string, frames int, at time.Time) error {
	res, err := r.db.Exec(`UPDATE runs SET finished_at = ?, frames = ? WHERE id = ?`, at, frames, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT id, detector, descriptor, matcher, selector, descriptor_kind, source, started_at, finished_at, frames
		 FROM runs WHERE id = ?`,
		id,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// List retrieves all runs, newest first.
func (r *RunRepository) List() ([]*Run, error) {
	rows, err := r.db.Query(
		`SELECT id, detector, descriptor, matcher, selector, descriptor_kind, source, started_at, finished_at, frames
		 FROM runs ORDER BY started_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Delete removes a run together with its frame results.
func (r *RunRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var finished sql.NullTime
	err := s.Scan(&run.ID, &run.Detector, &run.Descriptor, &run.Matcher, &run.Selector,
		&run.DescriptorKind, &run.Source, &run.StartedAt, &finished, &run.Frames)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
