package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fniksic/PSharp/internal/ir"
)

// ReadRun returns a run summary by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, program, strategy, seed, iterations, bugs, verdict, runtime_version
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRuns returns all runs ordered by id. Run ids are UUIDv7, so this is
// creation order.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program, strategy, seed, iterations, bugs, verdict, runtime_version
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadTrace returns a trace with its full choice log.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadTrace(ctx context.Context, id string) (ir.TraceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, run_id, program, iteration, error_code, message, steps
		FROM traces
		WHERE id = ?
	`, id)
	trace, err := scanTrace(row)
	if err != nil {
		return ir.TraceRecord{}, err
	}

	choices, err := s.readDecisions(ctx, id)
	if err != nil {
		return ir.TraceRecord{}, err
	}
	trace.Choices = choices
	return trace, nil
}

// TraceFilter narrows ListTraces. Zero fields match everything.
type TraceFilter struct {
	Program string
	RunID   string
}

// ListTraces returns trace summaries without their choice logs, ordered by
// run, then iteration, then id.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListTraces(ctx context.Context, filter TraceFilter) ([]ir.TraceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, program, iteration, error_code, message, steps
		FROM traces
		WHERE (? = '' OR program = ?) AND (? = '' OR run_id = ?)
		ORDER BY run_id COLLATE BINARY ASC, iteration ASC, id COLLATE BINARY ASC
	`, filter.Program, filter.Program, filter.RunID, filter.RunID)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	traces := []ir.TraceRecord{}
	for rows.Next() {
		trace, err := scanTrace(rows)
		if err != nil {
			return nil, err
		}
		traces = append(traces, trace)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate traces: %w", err)
	}
	return traces, nil
}

func (s *Store) readDecisions(ctx context.Context, traceID string) (ir.ChoiceLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT clock, kind, value
		FROM decisions
		WHERE trace_id = ?
		ORDER BY position ASC
	`, traceID)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var log ir.ChoiceLog
	for rows.Next() {
		var d ir.Decision
		var kind string
		if err := rows.Scan(&d.Index, &kind, &d.Value); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Kind = ir.DecisionKind(kind)
		log = append(log, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return log, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (ir.RunRecord, error) {
	var run ir.RunRecord
	var verdict string
	err := row.Scan(
		&run.ID,
		&run.Program,
		&run.Strategy,
		&run.Seed,
		&run.Iterations,
		&run.Bugs,
		&verdict,
		&run.RuntimeVersion,
	)
	if err == sql.ErrNoRows {
		return ir.RunRecord{}, err
	}
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	run.Verdict = ir.Verdict(verdict)
	return run, nil
}

func scanTrace(row scanner) (ir.TraceRecord, error) {
	var trace ir.TraceRecord
	var runID sql.NullString
	var code string
	err := row.Scan(
		&trace.ID,
		&runID,
		&trace.Program,
		&trace.Iteration,
		&code,
		&trace.Message,
		&trace.Steps,
	)
	if err == sql.ErrNoRows {
		return ir.TraceRecord{}, err
	}
	if err != nil {
		return ir.TraceRecord{}, fmt.Errorf("scan trace: %w", err)
	}
	trace.RunID = runID.String
	trace.ErrorCode = ir.ErrorCode(code)
	return trace, nil
}
