package scan

import "errors"

// ErrInvalidPath is returned when the scan root does not exist, is not a
// directory, or lies outside the permitted root boundary. Fatal to the
// whole scan; per-file failures are recorded on the FileRecord instead.
var ErrInvalidPath = errors.New("scan: invalid path")

// ErrInvalidQuery is returned by Search when the query selects no mode.
var ErrInvalidQuery = errors.New("scan: search query selects nothing")
