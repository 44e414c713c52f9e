// Package pipeline drives one scan-and-process run.
//
// Items are handled strictly one at a time. Each pending item moves through
// PENDING -> INFERRING -> NORMALIZING -> VALIDATING -> COMMITTING -> DONE;
// items already in the record set go straight to SKIPPED, and inference,
// commit, or (under the reject policy) validation failures end in FAILED.
// A FAILED item adds nothing to the record set, so the next run retries it.
//
// The record set is committed in full after every item. A failed write to
// the primary store ends the run, because the in-memory set would otherwise
// drift from what a restart reloads. A failed write to a secondary sink only
// fails the item; the next commit rewrites every sink.
package pipeline
