package store

import (
	"database/sql"
)

// FrameResult holds the per-frame counts and stage timings of a run.
type FrameResult struct {
	RunID             string  `json:"run_id"`
	FrameIndex        int     `json:"frame_index"`
	Keypoints         int     `json:"keypoints"`
	FilteredKeypoints int     `json:"filtered_keypoints"`
	Descriptors       int     `json:"descriptors"`
	Matches           int     `json:"matches"`
	MeanDistance      float64 `json:"mean_distance"`
	MeanSize          float64 `json:"mean_size"`
	DetectMs          float64 `json:"detect_ms"`
	DescribeMs        float64 `json:"describe_ms"`
	MatchMs           float64 `json:"match_ms"`
}

// FrameRepository stores frame results.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame result repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Add inserts a single frame result. Re-adding a frame index replaces it.
func (r *FrameRepository) Add(f *FrameResult) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO frame_results
		 (run_id, frame_index, keypoints, filtered_keypoints, descriptors, matches, mean_distance, mean_size, detect_ms, describe_ms, match_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.RunID, f.FrameIndex, f.Keypoints, f.FilteredKeypoints, f.Descriptors, f.Matches,
		f.MeanDistance, f.MeanSize, f.DetectMs, f.DescribeMs, f.MatchMs,
	)
	return err
}

// AddBatch inserts results in a single transaction.
func (r *FrameRepository) AddBatch(results []FrameResult) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO frame_results
		 (run_id, frame_index, keypoints, filtered_keypoints, descriptors, matches, mean_distance, mean_size, detect_ms, describe_ms, match_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range results {
		if _, err := stmt.Exec(f.RunID, f.FrameIndex, f.Keypoints, f.FilteredKeypoints, f.Descriptors,
			f.Matches, f.MeanDistance, f.MeanSize, f.DetectMs, f.DescribeMs, f.MatchMs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByRun returns the results of a run ordered by frame index.
func (r *FrameRepository) ListByRun(runID string) ([]FrameResult, error) {
	rows, err := r.db.Query(
		`SELECT run_id, frame_index, keypoints, filtered_keypoints, descriptors, matches, mean_distance, mean_size, detect_ms, describe_ms, match_ms
		 FROM frame_results WHERE run_id = ? ORDER BY frame_index`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FrameResult
	for rows.Next() {
		var f FrameResult
		if err := rows.Scan(&f.RunID, &f.FrameIndex, &f.Keypoints, &f.FilteredKeypoints, &f.Descriptors,
			&f.Matches, &f.MeanDistance, &f.MeanSize, &f.DetectMs, &f.DescribeMs, &f.MatchMs); err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}
