package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm migration.
const (
	DomainEvent   = "qrscan/event/v1"
	DomainCommand = "qrscan/command/v1"
	DomainConfig  = "qrscan/config/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID of a stamped decode event.
func EventID(sessionID string, ev DecodeEvent) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"session_id": sessionID,
		"event":      ev,
	})
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// CommandID computes the content-addressed ID of the idx-th command emitted
// for the event at seq.
func CommandID(sessionID string, seq int64, idx int, cmd Command) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"session_id": sessionID,
		"seq":        seq,
		"idx":        idx,
		"command":    cmd,
	})
	if err != nil {
		return "", fmt.Errorf("CommandID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCommand, canonical), nil
}

// ConfigHash fingerprints a canonical config object so the session log can
// tell which policy produced a recorded session.
func ConfigHash(cfg map[string]any) (string, error) {
	canonical, err := MarshalCanonical(cfg)
	if err != nil {
		return "", fmt.Errorf("ConfigHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}
