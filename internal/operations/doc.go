// Package operations runs the ingest pipeline: fetch raw datasets from the
// SRI portal, process them into the clean dataset, and write the province
// summary reports.
//
// A Manager executes the steps sequentially and tracks each run in a
// mutex-guarded State. Operation IDs are UUIDs; snapshots of every state
// change go out through the Broadcaster so websocket clients can follow
// progress live. Only one operation runs at a time because every run reads
// and rewrites the same files under the data directory.
package operations
