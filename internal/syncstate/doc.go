// Package syncstate tracks what was last uploaded for each account and
// decides whether a new upload is necessary.
//
// Each account owns an independent JSON record {last_hash,
// last_sync_timestamp, last_book_count} under the configured state
// directory. Records are replaced atomically on every successful upload, so
// a crash mid-write can never corrupt the previous record. Loading
// distinguishes three situations the caller must keep apart: never synced
// (nil state), a healthy record, and a corrupted record (ErrCorrupted).
//
// Decide implements the skip protocol: force flag wins, absent state always
// uploads, and otherwise only exact digest equality permits a skip.
package syncstate
