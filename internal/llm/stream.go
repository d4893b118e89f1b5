package llm

import (
	"bufio"
	"fmt"
	"io"
)

// MaxLineSize is the largest single line accepted from a streaming body (1MB)
const MaxLineSize = 1024 * 1024

// lineDecoder turns one line of a streaming body into a fragment.
// done reports that the server signalled the end of the stream.
type lineDecoder func(line []byte) (fragment string, done bool, err error)

// lineStream reads a line-delimited streaming body (SSE or NDJSON)
type lineStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	decode  lineDecoder

	current  string
	err      error
	finished bool
}

func newLineStream(body io.ReadCloser, decode lineDecoder) *lineStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &lineStream{
		body:    body,
		scanner: scanner,
		decode:  decode,
	}
}

// Next advances to the next non-empty fragment
func (s *lineStream) Next() bool {
	if s.finished || s.err != nil {
		return false
	}

	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		fragment, done, err := s.decode(line)
		if err != nil {
			s.err = err
			return false
		}
		if done {
			s.finished = true
		}
		if fragment != "" {
			s.current = fragment
			return true
		}
		if done {
			return false
		}
	}

	if err := s.scanner.Err(); err != nil {
		s.err = fmt.Errorf("scanner error: %w", err)
	}
	s.finished = true
	return false
}

// Fragment returns the fragment read by the last successful Next
func (s *lineStream) Fragment() string {
	return s.current
}

// Err returns the error that stopped the stream, if any
func (s *lineStream) Err() error {
	return s.err
}

// Close releases the response body
func (s *lineStream) Close() error {
	s.finished = true
	return s.body.Close()
}
