// Package scan defines the value types that flow through a QR scanning
// session: per-frame decode outcomes going in, presentation commands coming
// out.
//
// # Coordinates
//
// Bounds are integer pixel coordinates in the preview layer, the same space
// the presentation layer uses to place the overlay. The decoder adapter is
// responsible for transforming decoder-native coordinates before an event is
// built.
//
// # Identity
//
// Events and commands are content addressed for the session log. IDs are
// SHA-256 over canonical JSON (sorted keys, NFC strings, no floats, no null)
// with a versioned domain prefix, so a replayed session produces the same IDs
// as the original run.
package scan
