// Package asciiconv converts a whitespace-separated ASCII sketch stream
// into the bvecs binary record format consumed by bvecsio.
package asciiconv

import (
	"bufio"
	"encoding/binary"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/sketchindex"
)

// Convert reads one sketch per line from r (whitespace-separated
// integers in [0, 256)) and writes one bvecs record per line to w: a
// 4-byte little-endian dim followed by dim symbol bytes. Fails with a
// *sketchindex.ParseError on a non-integer token or a value outside
// [0, 256).
func Convert(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)

		row := make([]byte, len(fields))
		for i, tok := range fields {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return &sketchindex.ParseError{Line: line, Token: tok, Reason: "not an integer"}
			}
			if v < 0 || v >= 256 {
				return &sketchindex.ParseError{Line: line, Token: tok, Reason: "value must be in [0, 256)"}
			}
			row[i] = byte(v)
		}

		if err := binary.Write(w, binary.LittleEndian, uint32(len(row))); err != nil {
			return sketchindex.NewIoError("asciiconv.Convert: write record dim", err)
		}
		if _, err := w.Write(row); err != nil {
			return sketchindex.NewIoError("asciiconv.Convert: write record payload", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return sketchindex.NewIoError("asciiconv.Convert: scan input", err)
	}
	return nil
}
