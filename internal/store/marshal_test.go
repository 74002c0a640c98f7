package store

import (
	"database/sql"
	"testing"

	"github.com/roach88/qrscan/internal/scan"
)

func TestMarshalBounds(t *testing.T) {
	ns, err := marshalBounds(&scan.Rect{X: 1, Y: 2, Width: 3, Height: 4})
	if err != nil {
		t.Fatalf("marshalBounds() failed: %v", err)
	}
	if !ns.Valid || ns.String != `{"height":4,"width":3,"x":1,"y":2}` {
		t.Errorf("marshalBounds() = %+v", ns)
	}

	ns, err = marshalBounds(nil)
	if err != nil || ns.Valid {
		t.Errorf("marshalBounds(nil) = %+v, %v; want NULL", ns, err)
	}
}

func TestUnmarshalBounds(t *testing.T) {
	r, err := unmarshalBounds(sql.NullString{String: `{"x":-5,"y":0,"width":10,"height":20}`, Valid: true})
	if err != nil {
		t.Fatalf("unmarshalBounds() failed: %v", err)
	}
	if r == nil || *r != (scan.Rect{X: -5, Width: 10, Height: 20}) {
		t.Errorf("unmarshalBounds() = %+v", r)
	}

	r, err = unmarshalBounds(sql.NullString{})
	if err != nil || r != nil {
		t.Errorf("unmarshalBounds(NULL) = %+v, %v; want nil", r, err)
	}

	if _, err := unmarshalBounds(sql.NullString{String: "not json", Valid: true}); err == nil {
		t.Error("expected error for corrupt bounds")
	}
}

func TestPayloadNullRoundTrip(t *testing.T) {
	if got := payloadFromNull(nullablePayload(nil)); got != nil {
		t.Errorf("nil payload round trip = %q", *got)
	}

	// An empty string is a decoded payload, not a miss.
	empty := ""
	got := payloadFromNull(nullablePayload(&empty))
	if got == nil || *got != "" {
		t.Errorf("empty payload round trip = %v", got)
	}
}
