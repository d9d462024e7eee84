// Package connection implements cursor based connection paging and offset
// paging as field extensions.
//
// A cursor is the base64 encoding of the decimal, one-based position of an
// item in the paged sequence. Cursors identify positions, not items: they
// are only meaningful against the same ordering of the same sequence.
package connection

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// InvalidCursorError reports a string that is not a cursor produced by
// EncodeCursor.
type InvalidCursorError struct {
	Cursor string
}

func (e *InvalidCursorError) Error() string {
	return fmt.Sprintf("invalid cursor %q", e.Cursor)
}

// EncodeCursor returns the cursor for the one-based position n.
func EncodeCursor(n int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(n)))
}

// DecodeCursor returns the position encoded by s. Only canonical encodings of
// non-negative integers are accepted.
func DecodeCursor(s string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return 0, &InvalidCursorError{Cursor: s}
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 || EncodeCursor(n) != s {
		return 0, &InvalidCursorError{Cursor: s}
	}
	return n, nil
}
