package scoring

import "errors"

// ErrInvalidAnswer marks an answer that does not fit its question.
var ErrInvalidAnswer = errors.New("invalid answer")
