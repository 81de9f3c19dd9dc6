package airquality

import "errors"

// Failure kinds of one forwarding cycle. Callers wrap them with context and
// classify with errors.Is.
var (
	ErrFetch      = errors.New("fetch failed")
	ErrTransform  = errors.New("malformed record")
	ErrValidation = errors.New("no readings found")
	ErrPublish    = errors.New("publish failed")
)

// Kind names the failure class of err, for logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrTransform):
		return "transform"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrPublish):
		return "publish"
	default:
		return "unknown"
	}
}
