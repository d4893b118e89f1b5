package terminal

import (
	"bufio"
	"io"
	"strings"
)

// Reader reads user input one line at a time
type Reader struct {
	reader *bufio.Reader
}

// NewReader creates a reader over in
func NewReader(in io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(in)}
}

// ReadLine reads a line of input from the user, trimmed of whitespace.
// A final line without a newline is returned before io.EOF.
func (r *Reader) ReadLine() (string, error) {
	input, err := r.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && input != "" {
			return strings.TrimSpace(input), nil
		}
		return "", err
	}

	// Trim whitespace and newline
	return strings.TrimSpace(input), nil
}
