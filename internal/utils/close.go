package utils

import (
	"io"
)

// drainLimit bounds how much of an unread body is discarded so the
// connection can go back to the pool.
const drainLimit = 64 << 10

// Close drains up to drainLimit bytes of c when it is a reader, then closes
// it. Errors are ignored, so it is meant for defer.
func Close(c io.Closer) {
	if r, ok := c.(io.Reader); ok {
		_, _ = io.Copy(io.Discard, io.LimitReader(r, drainLimit))
	}
	_ = c.Close()
}
