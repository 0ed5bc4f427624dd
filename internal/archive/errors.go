package archive

import (
	"errors"
	"fmt"
)

var (
	ErrItemNotFound       = errors.New("archive item not found")
	ErrFileNotFound       = errors.New("archive file not found")
	ErrIncompleteTransfer = errors.New("incomplete transfer")
)

// StatusError is returned when the archive responds with an
// unexpected HTTP status code.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: code=%d url=%s", e.StatusCode, e.URL)
}

// ChecksumError is returned when the md5 of downloaded content does not
// match the value advertised by the archive.
type ChecksumError struct {
	Name     string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected md5 %s, got %s", e.Name, e.Expected, e.Actual)
}
