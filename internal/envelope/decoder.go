package envelope

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Decoder incrementally decodes a line-framed envelope stream. It reads
// the underlying reader chunk by chunk, carrying any trailing partial line
// over to the next read, so lines split across arbitrary chunk boundaries
// decode identically to lines delivered whole. Lines that fail to parse
// as JSON are skipped.
//
// A Decoder is a lazy, finite, non-restartable sequence: Next returns
// envelopes until the stream is exhausted, then io.EOF forever.
type Decoder struct {
	r       io.Reader
	buf     []byte
	carry   string
	pending []Envelope
	done    bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 4096),
	}
}

// Next returns the next decoded envelope, or io.EOF once the stream ends.
func (d *Decoder) Next() (Envelope, error) {
	for {
		if len(d.pending) > 0 {
			ev := d.pending[0]
			d.pending = d.pending[1:]
			return ev, nil
		}

		if d.done {
			return Envelope{}, io.EOF
		}

		n, err := d.r.Read(d.buf)
		if n > 0 {
			d.carry += string(d.buf[:n])
			lines := strings.Split(d.carry, "\n")
			d.carry = lines[len(lines)-1]
			d.decodeLines(lines[:len(lines)-1])
		}
		if err != nil {
			d.done = true
			if !errors.Is(err, io.EOF) {
				return Envelope{}, err
			}
			// A stream that ended without a trailing newline may still
			// hold one complete line, which also covers servers that
			// answer with a single unframed JSON body.
			d.decodeLines([]string{d.carry})
			d.carry = ""
		}
	}
}

func (d *Decoder) decodeLines(lines []string) {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var ev Envelope
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		d.pending = append(d.pending, ev)
	}
}
