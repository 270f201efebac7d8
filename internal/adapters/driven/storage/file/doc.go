// Package file provides a JSON-file implementation of driven.ProgressStore.
//
// Each region's progress lives in historical_sync_progress_<REGION>.json.
// Writes go to a temporary file in the same directory which is then renamed
// over the previous document, so a crash leaves either the old or the new
// progress on disk.
package file
