package ir

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DecisionKind distinguishes the choice points a testing scheduler resolves.
type DecisionKind string

const (
	// DecisionSchedule records which enabled machine advanced one step.
	DecisionSchedule DecisionKind = "schedule"
	// DecisionBool records a nondeterministic boolean (0 or 1).
	DecisionBool DecisionKind = "bool"
	// DecisionInt records a nondeterministic integer in [0, n).
	DecisionInt DecisionKind = "int"
)

// Valid reports whether k is a known decision kind.
func (k DecisionKind) Valid() bool {
	switch k {
	case DecisionSchedule, DecisionBool, DecisionInt:
		return true
	}
	return false
}

// Decision is one resolved choice point.
//
// Value holds the machine id for schedule decisions, 0/1 for booleans and
// the chosen integer for integer decisions.
type Decision struct {
	Index int64        `json:"index"`
	Kind  DecisionKind `json:"kind"`
	Value int64        `json:"value"`
}

func (d Decision) String() string {
	return fmt.Sprintf("%d %s %d", d.Index, d.Kind, d.Value)
}

// ChoiceLog is the ordered sequence of decisions made during one iteration.
type ChoiceLog []Decision

// Clone returns a copy that shares no storage with l.
func (l ChoiceLog) Clone() ChoiceLog {
	if l == nil {
		return nil
	}
	out := make(ChoiceLog, len(l))
	copy(out, l)
	return out
}

// Equal reports whether two logs hold the same decisions in the same order.
func (l ChoiceLog) Equal(other ChoiceLog) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Schedule returns only the schedule decisions as machine ids, in order.
func (l ChoiceLog) Schedule() []MachineID {
	var ids []MachineID
	for _, d := range l {
		if d.Kind == DecisionSchedule {
			ids = append(ids, MachineID(d.Value))
		}
	}
	return ids
}

// WriteText writes the log in the flat text format, one decision per line:
//
//	<index> <kind> <value>
//
// Lines starting with '#' are comments. The format is stable across
// process invocations and is accepted by ParseChoiceLog.
func (l ChoiceLog) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "# psharp choice log v%s\n", TraceVersion); err != nil {
		return fmt.Errorf("write choice log header: %w", err)
	}
	for _, d := range l {
		if _, err := fmt.Fprintln(bw, d.String()); err != nil {
			return fmt.Errorf("write decision %d: %w", d.Index, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush choice log: %w", err)
	}
	return nil
}

// ParseChoiceLog reads a log written by WriteText.
// Decision indices must be strictly increasing.
func ParseChoiceLog(r io.Reader) (ChoiceLog, error) {
	var log ChoiceLog
	sc := bufio.NewScanner(r)
	line := 0
	last := int64(-1)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d", line, len(fields))
		}
		idx, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: index: %w", line, err)
		}
		if idx <= last {
			return nil, fmt.Errorf("line %d: index %d not increasing", line, idx)
		}
		kind := DecisionKind(fields[1])
		if !kind.Valid() {
			return nil, fmt.Errorf("line %d: unknown decision kind %q", line, fields[1])
		}
		val, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: value: %w", line, err)
		}
		log = append(log, Decision{Index: idx, Kind: kind, Value: val})
		last = idx
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read choice log: %w", err)
	}
	return log, nil
}

// canonicalValue converts the log into the value shape MarshalCanonical accepts.
func (l ChoiceLog) canonicalValue() []any {
	out := make([]any, len(l))
	for i, d := range l {
		out[i] = map[string]any{
			"index": d.Index,
			"kind":  string(d.Kind),
			"value": d.Value,
		}
	}
	return out
}
