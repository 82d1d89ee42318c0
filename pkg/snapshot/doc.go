// Package snapshot persists the exporter's results and resume marker.
//
// The store owns three files: the thread snapshot, the reply snapshot
// and the progress marker. Every write replaces the whole file through a
// temp-file-and-rename sequence, so a crash mid-write leaves the
// previous snapshot intact. Missing or corrupt state is treated as
// empty; resumability degrades to a fresh start, never to a failed job.
package snapshot
