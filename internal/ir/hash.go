package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTrace = "psharp/trace/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TraceID computes the content-addressed id of a failing schedule.
// The same program and choice log always produce the same id, so storing a
// trace twice is idempotent.
func TraceID(program string, log ChoiceLog) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"program": program,
		"version": TraceVersion,
		"choices": log,
	})
	if err != nil {
		return "", fmt.Errorf("TraceID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// MustTraceID is like TraceID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTraceID(program string, log ChoiceLog) string {
	id, err := TraceID(program, log)
	if err != nil {
		panic(err)
	}
	return id
}
