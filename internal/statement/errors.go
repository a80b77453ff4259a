package statement

import "errors"

var (
	ErrEmptyUpload   = errors.New("empty upload")
	ErrMissingHeader = errors.New("missing header row")
	ErrMalformedCSV  = errors.New("malformed csv")
)

// IsInputError reports whether err was caused by the uploaded content
// rather than by the server.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyUpload) ||
		errors.Is(err, ErrMissingHeader) ||
		errors.Is(err, ErrMalformedCSV)
}
