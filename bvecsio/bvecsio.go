// Package bvecsio reads the bvecs sketch stream format: a sequence of
// records, each a 4-byte little-endian dimension followed by that many
// symbol bytes. A record may carry more dimensions than the configured
// Dim; the extra trailing symbols are ignored. Every symbol is masked
// with the configured alphabet mask on read.
package bvecsio

import (
	"encoding/binary"
	"io"

	"github.com/hupe1980/sketchindex"
	"github.com/hupe1980/sketchindex/internal/mmap"
)

// Read parses every record from r into a flat, concatenated Dim-byte
// sketch buffer (suitable for entryset.Build or multiblock.Build).
// Returns an IoError wrapping io.ErrUnexpectedEOF on a truncated record,
// and a ConfigError-shaped failure (via a *sketchindex.IoError, since
// the fault is in the stream, not the caller's Config) when a record's
// dim is below conf.Dim or above MaxDim.
func Read(r io.Reader, conf sketchindex.Config) ([]byte, error) {
	mask := conf.Mask()
	var out []byte

	for {
		var dim uint32
		if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
			if err == io.EOF {
				break
			}
			return nil, sketchindex.NewIoError("bvecsio.Read: read record dim", err)
		}

		if int(dim) < conf.Dim {
			return nil, sketchindex.NewIoError("bvecsio.Read", &sketchindex.ConfigError{
				Field: "dim", Value: float64(dim), Reason: "record dim below configured Dim",
			})
		}
		if int(dim) > sketchindex.MaxDim {
			return nil, sketchindex.NewIoError("bvecsio.Read", &sketchindex.ConfigError{
				Field: "dim", Value: float64(dim), Reason: "record dim exceeds MaxDim",
			})
		}

		row := make([]byte, dim)
		if _, err := io.ReadFull(r, row); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, sketchindex.NewIoError("bvecsio.Read: read record payload", err)
		}

		for i := 0; i < conf.Dim; i++ {
			out = append(out, row[i]&mask)
		}
	}
	return out, nil
}

// Write emits sketches (N rows of conf.Dim bytes each) as bvecs records.
func Write(w io.Writer, sketches []byte, conf sketchindex.Config) error {
	n := len(sketches) / conf.Dim
	for row := 0; row < n; row++ {
		if err := binary.Write(w, binary.LittleEndian, uint32(conf.Dim)); err != nil {
			return sketchindex.NewIoError("bvecsio.Write: write record dim", err)
		}
		if _, err := w.Write(sketches[row*conf.Dim : (row+1)*conf.Dim]); err != nil {
			return sketchindex.NewIoError("bvecsio.Write: write record payload", err)
		}
	}
	return nil
}

// Corpus is a memory-mapped bvecs file, parsed once at Load time into a
// row offset table so that Sketch can locate any row without rescanning
// the file.
type Corpus struct {
	m       *mmap.Mapping
	offsets []int
	conf    sketchindex.Config
}

// Load memory-maps path and scans it once to build the row offset table.
// The mapping stays open until Close; Sketch reads from it and returns
// a masked copy of the row.
func Load(path string, conf sketchindex.Config) (*Corpus, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, sketchindex.NewIoError("bvecsio.Load: mmap open", err)
	}

	data := m.Bytes()
	var offsets []int
	pos := 0
	for pos < len(data) {
		if pos+4 > len(data) {
			m.Close()
			return nil, sketchindex.NewIoError("bvecsio.Load: truncated record header", io.ErrUnexpectedEOF)
		}
		dim := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		if dim < conf.Dim || dim > sketchindex.MaxDim {
			m.Close()
			return nil, sketchindex.NewIoError("bvecsio.Load", &sketchindex.ConfigError{
				Field: "dim", Value: float64(dim), Reason: "record dim out of configured range",
			})
		}
		pos += 4
		if pos+dim > len(data) {
			m.Close()
			return nil, sketchindex.NewIoError("bvecsio.Load: truncated record payload", io.ErrUnexpectedEOF)
		}
		offsets = append(offsets, pos)
		pos += dim
	}

	return &Corpus{m: m, offsets: offsets, conf: conf}, nil
}

// Len returns the number of sketch rows in the corpus.
func (c *Corpus) Len() int { return len(c.offsets) }

// Sketch returns the masked, conf.Dim-byte view of row i. The returned
// slice is a freshly masked copy (mmap'd bytes are read-only and may
// carry unmasked high bits from a wider on-disk record).
func (c *Corpus) Sketch(i int) sketchindex.Sketch {
	mask := c.conf.Mask()
	off := c.offsets[i]
	out := make(sketchindex.Sketch, c.conf.Dim)
	raw := c.m.Bytes()[off : off+c.conf.Dim]
	for j, v := range raw {
		out[j] = v & mask
	}
	return out
}

// Close unmaps the underlying file.
func (c *Corpus) Close() error { return c.m.Close() }
