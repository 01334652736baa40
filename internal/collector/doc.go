// Package collector replays a catalog from a cursor forward.
//
// A BatchCollector pass reads the root, then every page committed after the
// input cursor in commit timestamp order, and hands the newer items to a
// Processor in batches of at most BatchSize. The pass returns the timestamp
// of the last item seen; persisting it and passing it to the next pass
// resumes exactly after that commit.
//
// Batches are cut by size only. One commit can therefore be split across two
// ProcessBatch calls; a CommitObserver sees the commit boundaries.
package collector
