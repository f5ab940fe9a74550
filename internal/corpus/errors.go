package corpus

import "errors"

// ErrPassageNotFound indicates the requested reference does not exist in the
// corpus. Checked with errors.Is().
var ErrPassageNotFound = errors.New("passage not found")
