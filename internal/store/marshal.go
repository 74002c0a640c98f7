package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/qrscan/internal/scan"
)

// marshalBounds converts a rect to canonical JSON TEXT, or NULL for nil.
func marshalBounds(r *scan.Rect) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	data, err := scan.MarshalCanonical(*r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal bounds: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalBounds parses bounds TEXT; NULL yields nil.
func unmarshalBounds(ns sql.NullString) (*scan.Rect, error) {
	if !ns.Valid {
		return nil, nil
	}
	var r scan.Rect
	if err := json.Unmarshal([]byte(ns.String), &r); err != nil {
		return nil, fmt.Errorf("unmarshal bounds: %w", err)
	}
	return &r, nil
}

func nullablePayload(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func payloadFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
