package history

import (
	"git.home.luguber.info/inful/ddd/internal/foundation/errors"
)

var (
	// ErrOpenFailed indicates the SQLite database could not be opened.
	ErrOpenFailed = errors.HistoryError("could not open run history database").Build()

	// ErrRecordFailed indicates a run could not be written.
	ErrRecordFailed = errors.HistoryError("failed to record run").Build()

	// ErrQueryFailed indicates reading runs failed.
	ErrQueryFailed = errors.HistoryError("failed to query run history").Build()
)
