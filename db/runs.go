package db

import (
	"database/sql"
	"time"

	"github.com/qafax/qafax/errors"
)

// RunRecord is one persisted QA run.
type RunRecord struct {
	ID            string
	ProfileName   string
	ProfileHash   string
	PolicyName    string
	PolicyHash    string
	ReferencePath string
	CandidatePath string
	BaseSeed      int64
	Iterations    int
	Verdict       string
	HostJSON      string
	StartedAt     time.Time
	CompletedAt   *time.Time
}

// IterationRecord is one simulate-and-verify cycle within a run.
type IterationRecord struct {
	ID            int64
	RunID         string
	Seq           int
	Seed          int64
	FinalBitrate  int
	FallbackSteps int
	Verdict       string
	MetricsJSON   string
	WarningsJSON  string
	DurationMS    int64
	CreatedAt     time.Time
}

// RunStats aggregates the runs table for the stats command.
type RunStats struct {
	TotalRuns       int
	TotalIterations int
	Verdicts        map[string]int
}

// RunStore reads and writes run history.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a store over an open database.
func NewRunStore(database *sql.DB) *RunStore {
	return &RunStore{db: database}
}

// CreateRun inserts a new run row. StartedAt defaults to now when unset.
func (s *RunStore) CreateRun(run *RunRecord) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.HostJSON == "" {
		run.HostJSON = "{}"
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, profile_name, profile_hash, policy_name, policy_hash,
			reference_path, candidate_path, base_seed, iterations, verdict, host_json, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProfileName, run.ProfileHash, run.PolicyName, run.PolicyHash,
		run.ReferencePath, run.CandidatePath, run.BaseSeed, run.Iterations,
		run.Verdict, run.HostJSON, run.StartedAt)
	if err != nil {
		return errors.Wrapf(err, "create run %s", run.ID)
	}
	return nil
}

// CompleteRun records the final verdict and completion time of a run.
func (s *RunStore) CompleteRun(id string, verdict string, iterations int) error {
	completed := time.Now().UTC()
	result, err := s.db.Exec(`
		UPDATE runs SET verdict = ?, iterations = ?, completed_at = ? WHERE id = ?`,
		verdict, iterations, completed, id)
	if err != nil {
		return errors.Wrapf(err, "complete run %s", id)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.NewNotFoundError("run %s not found", id)
	}
	return nil
}

// RecordIteration appends one iteration to a run.
func (s *RunStore) RecordIteration(iter *IterationRecord) error {
	if iter.MetricsJSON == "" {
		iter.MetricsJSON = "[]"
	}
	if iter.WarningsJSON == "" {
		iter.WarningsJSON = "[]"
	}
	result, err := s.db.Exec(`
		INSERT INTO run_iterations (run_id, seq, seed, final_bitrate, fallback_steps,
			verdict, metrics_json, warnings_json, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iter.RunID, iter.Seq, iter.Seed, iter.FinalBitrate, iter.FallbackSteps,
		iter.Verdict, iter.MetricsJSON, iter.WarningsJSON, iter.DurationMS)
	if err != nil {
		return errors.Wrapf(err, "record iteration %d of run %s", iter.Seq, iter.RunID)
	}
	iter.ID, _ = result.LastInsertId()
	return nil
}

// GetRun fetches one run by id.
func (s *RunStore) GetRun(id string) (*RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, profile_name, profile_hash, policy_name, policy_hash,
			reference_path, candidate_path, base_seed, iterations, verdict,
			host_json, started_at, completed_at
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("run %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get run %s", id)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *RunStore) RecentRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, profile_name, profile_hash, policy_name, policy_hash,
			reference_path, candidate_path, base_seed, iterations, verdict,
			host_json, started_at, completed_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list recent runs")
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		runs = append(runs, *run)
	}
	return runs, errors.Wrap(rows.Err(), "iterate runs")
}

// Iterations returns a run's iterations in sequence order.
func (s *RunStore) Iterations(runID string) ([]IterationRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, seq, seed, final_bitrate, fallback_steps,
			verdict, metrics_json, warnings_json, duration_ms, created_at
		FROM run_iterations WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "list iterations for run %s", runID)
	}
	defer rows.Close()

	var iterations []IterationRecord
	for rows.Next() {
		var iter IterationRecord
		if err := rows.Scan(&iter.ID, &iter.RunID, &iter.Seq, &iter.Seed,
			&iter.FinalBitrate, &iter.FallbackSteps, &iter.Verdict,
			&iter.MetricsJSON, &iter.WarningsJSON, &iter.DurationMS, &iter.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan iteration")
		}
		iterations = append(iterations, iter)
	}
	return iterations, errors.Wrap(rows.Err(), "iterate iterations")
}

// Stats aggregates run counts and verdict distribution.
func (s *RunStore) Stats() (*RunStats, error) {
	stats := &RunStats{Verdicts: make(map[string]int)}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns); err != nil {
		return nil, errors.Wrap(err, "count runs")
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM run_iterations").Scan(&stats.TotalIterations); err != nil {
		return nil, errors.Wrap(err, "count iterations")
	}

	rows, err := s.db.Query(`
		SELECT verdict, COUNT(*) FROM runs WHERE verdict != '' GROUP BY verdict`)
	if err != nil {
		return nil, errors.Wrap(err, "group verdicts")
	}
	defer rows.Close()
	for rows.Next() {
		var verdict string
		var count int
		if err := rows.Scan(&verdict, &count); err != nil {
			return nil, errors.Wrap(err, "scan verdict count")
		}
		stats.Verdicts[verdict] = count
	}
	return stats, errors.Wrap(rows.Err(), "iterate verdicts")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var run RunRecord
	var completed sql.NullTime
	err := row.Scan(&run.ID, &run.ProfileName, &run.ProfileHash, &run.PolicyName,
		&run.PolicyHash, &run.ReferencePath, &run.CandidatePath, &run.BaseSeed,
		&run.Iterations, &run.Verdict, &run.HostJSON, &run.StartedAt, &completed)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		run.CompletedAt = &completed.Time
	}
	return &run, nil
}
