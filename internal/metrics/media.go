package metrics

import "time"

// MediaProcessed records one successful job.
func MediaProcessed(kind, mediaID string, elapsed time.Duration, sourceBytes int64) {
	New(Namespace).
		Dimension("Kind", kind).
		Metric("MediaProcessingMs", float64(elapsed.Milliseconds()), UnitMilliseconds).
		Metric("SourceBytes", float64(sourceBytes), UnitBytes).
		Count("MediaProcessed").
		Property("mediaId", mediaID).
		Flush()
}

// MediaFailed records one failed job. kind is "unknown" when the message
// could not be parsed.
func MediaFailed(kind, mediaID string, elapsed time.Duration) {
	New(Namespace).
		Dimension("Kind", kind).
		Metric("MediaProcessingMs", float64(elapsed.Milliseconds()), UnitMilliseconds).
		Count("MediaFailed").
		Property("mediaId", mediaID).
		Flush()
}

// Batch records the size and failure count of one delivered batch.
func Batch(size, failures int) {
	New(Namespace).
		Dimension("Operation", "batch").
		Metric("BatchSize", float64(size), UnitCount).
		Metric("BatchFailures", float64(failures), UnitCount).
		Flush()
}
