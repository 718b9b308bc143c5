package dl

import "errors"

// ErrUnsupportedSourceType marks a source whose type has no download path.
var ErrUnsupportedSourceType = errors.New("unsupported source type")

// Outcome is the terminal state of one item's pipeline run. Per-item
// failures are values, not raised errors: loops branch on the outcome and
// only context cancellation crosses item boundaries.
type Outcome int

const (
	// OutcomeDone means the item was downloaded, tagged and archived.
	OutcomeDone Outcome = iota
	// OutcomeSkippedArchive means the archive already recorded the item.
	OutcomeSkippedArchive
	// OutcomeSkippedExisting means the rendered destination file already
	// existed on disk and skip-existing is configured.
	OutcomeSkippedExisting
	// OutcomeFailed means this item failed; the batch continues.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeSkippedArchive:
		return "skipped (archived)"
	case OutcomeSkippedExisting:
		return "skipped (file exists)"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of a single item. Path is the item's rendered
// destination (relative to the base path) when known; Err is set only for
// OutcomeFailed.
type Result struct {
	Outcome Outcome
	Path    string
	Err     error
}

func (r Result) Skipped() bool {
	return r.Outcome == OutcomeSkippedArchive || r.Outcome == OutcomeSkippedExisting
}

func done(path string) Result {
	return Result{Outcome: OutcomeDone, Path: path}
}

func skippedArchive(path string) Result {
	return Result{Outcome: OutcomeSkippedArchive, Path: path}
}

func skippedExisting(path string) Result {
	return Result{Outcome: OutcomeSkippedExisting, Path: path}
}

func failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}

// Stats aggregates one run. A run always ends with these counts, even after
// a partial interrupt.
type Stats struct {
	Songs     int
	Albums    int
	Playlists int
	Skipped   int
	Errors    int
	Warnings  int
}
