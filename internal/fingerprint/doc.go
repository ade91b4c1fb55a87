// Package fingerprint computes stable content digests for change detection.
//
// A fingerprint is the hex-encoded SHA-256 of the exported library bytes.
// Equal inputs always produce equal digests, and any byte difference yields a
// different digest, so the sync workflow can test "did the library change"
// without storing past exports.
package fingerprint
