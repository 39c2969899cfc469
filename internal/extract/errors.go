package extract

import "errors"

var (
	ErrProviderUnavailable = errors.New("extraction provider unavailable")
	ErrExtractionTimeout   = errors.New("extraction timeout")
	ErrInvalidResponse     = errors.New("extraction provider returned invalid response")
)
