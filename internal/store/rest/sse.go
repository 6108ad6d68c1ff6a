package rest

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// The store streams changes as Server-Sent Events
// (https://www.w3.org/TR/eventsource/): "event:" names the change kind,
// "data:" carries a JSON body with the changed path and value.

type sseEvent struct {
	Name string
	Data []byte
}

type sseReader struct {
	s    *bufio.Scanner
	data bytes.Buffer
	err  error
}

func newSSEReader(r io.Reader) *sseReader {
	sr := &sseReader{s: bufio.NewScanner(r)}
	sr.s.Buffer(nil, 1024*1024)
	return sr
}

// Next returns the next complete event, or an error when the stream ends.
// io.EOF means the server closed the stream cleanly.
func (sr *sseReader) Next() (sseEvent, error) {
	var name string
	sr.data.Reset()

	for sr.s.Scan() {
		line := sr.s.Text()

		if line == "" {
			if sr.data.Len() == 0 {
				continue
			}
			data := sr.data.Bytes()
			if data[len(data)-1] == '\n' {
				data = data[:len(data)-1]
			}
			return sseEvent{Name: name, Data: append([]byte(nil), data...)}, nil
		}

		// Comment line, used by the store as a keep-alive.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			name = value
		case "data":
			sr.data.WriteString(value)
			sr.data.WriteByte('\n')
		default:
			// id and retry are not used by the store protocol.
		}
	}

	if err := sr.s.Err(); err != nil {
		return sseEvent{}, err
	}
	return sseEvent{}, io.EOF
}
