package store

import (
	"path/filepath"
	"testing"

	"github.com/fniksic/PSharp/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// pragma reads a pragma on the store's connection.
func pragma(t *testing.T, s *Store, name string) string {
	t.Helper()
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		t.Fatalf("PRAGMA %s: %v", name, err)
	}
	return value
}

func createTestRun(id string) ir.RunRecord {
	return ir.RunRecord{
		ID:             id,
		Program:        "election",
		Strategy:       "random(seed=1)",
		Seed:           1,
		Iterations:     10,
		Bugs:           1,
		Verdict:        ir.VerdictFail,
		RuntimeVersion: ir.RuntimeVersion,
	}
}

func createTestTrace(runID string, iteration int, choices ir.ChoiceLog) ir.TraceRecord {
	return ir.TraceRecord{
		RunID:     runID,
		Program:   "election",
		Iteration: iteration,
		ErrorCode: ir.ErrCodeSafetyViolation,
		Message:   "two leaders",
		Steps:     len(choices),
		Choices:   choices,
	}
}

func testChoices(values ...int64) ir.ChoiceLog {
	log := make(ir.ChoiceLog, 0, len(values))
	for i, v := range values {
		log = append(log, ir.Decision{Index: int64(i + 1), Kind: ir.DecisionSchedule, Value: v})
	}
	return log
}
