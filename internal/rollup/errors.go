package rollup

import "errors"

// Sentinel errors for rollup execution.
var (
	// ErrSourceMissing indicates the source period document does not
	// exist. The watermark is left untouched so the period can be retried
	// once the document appears.
	ErrSourceMissing = errors.New("rollup source document missing")

	// ErrStatePersistence indicates the rollup's side effects are durable
	// but the watermark could not be saved. The next invocation will
	// retry the period; the duplicate-append guard makes the retry a
	// no-op on the destination document.
	ErrStatePersistence = errors.New("rollup state persistence failed")
)
