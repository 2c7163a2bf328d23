package codec

import (
	"bufio"
	"errors"
	"io"
	"strings"

	clerr "classlink/internal/errors"
)

// DefaultMaxFrame bounds a single line on the wire (64 KiB).
const DefaultMaxFrame = 64 * 1024

// FrameReader splits a stream into newline-terminated frames.  A
// trailing "\r" is dropped so CRLF peers interoperate.
type FrameReader struct {
	sc *bufio.Scanner
}

// NewFrameReader reads frames of at most max bytes from r.  A max of 0
// selects [DefaultMaxFrame].
func NewFrameReader(r io.Reader, max int) *FrameReader {
	if max <= 0 {
		max = DefaultMaxFrame
	}
	// The scanner's limit is the larger of max and the initial
	// buffer's capacity.
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(4096, max)), max)
	sc.Split(bufio.ScanLines)
	return &FrameReader{sc: sc}
}

// ReadFrame returns the next frame without its terminator.  It returns
// io.EOF once the stream is exhausted and ErrFrameTooLong when a line
// exceeds the configured maximum.
func (fr *FrameReader) ReadFrame() (string, error) {
	if fr.sc.Scan() {
		return fr.sc.Text(), nil
	}
	err := fr.sc.Err()
	switch {
	case err == nil:
		return "", io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		return "", clerr.ErrFrameTooLong
	default:
		return "", err
	}
}

// FrameWriter writes newline-terminated frames and flushes after each.
// It is not safe for concurrent use; callers serialise writes.
type FrameWriter struct {
	bw *bufio.Writer
}

// NewFrameWriter wraps w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{bw: bufio.NewWriter(w)}
}

// WriteFrame writes frame followed by "\n" and flushes.  It returns the
// number of bytes put on the wire.
func (fw *FrameWriter) WriteFrame(frame string) (int, error) {
	if strings.ContainsAny(frame, "\r\n") {
		return 0, clerr.ErrFrameDecode
	}
	n, err := fw.bw.WriteString(frame)
	if err != nil {
		return n, err
	}
	if err := fw.bw.WriteByte('\n'); err != nil {
		return n, err
	}
	n++
	return n, fw.bw.Flush()
}
