package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/sketchindex/internal/hash"
	"github.com/klauspost/compress/zstd"
)

// MagicNumber identifies a sketchindex persisted file.
const MagicNumber uint32 = 0x534b4958 // "SKIX"

// Version is the current on-disk format version.
const Version uint32 = 1

// IndexType discriminates which of the three index kinds a persisted
// file holds; Open returns it so the caller can pass the body to the
// matching package's Load without knowing the kind in advance.
type IndexType uint32

const (
	IndexTypeHash IndexType = iota
	IndexTypeTrie
	IndexTypeMultiBlock
)

// FileHeader is the fixed-width prefix of every persisted index file.
// Compressed is 1 if the body following the header is zstd-framed, 0 if
// it is the index's raw WriteTo output. Checksum is the CRC32-Castagnoli
// checksum of the uncompressed body.
type FileHeader struct {
	Magic      uint32
	Version    uint32
	IndexType  IndexType
	Compressed uint32
	Checksum   uint32
}

var (
	ErrInvalidMagic     = errors.New("persistence: invalid magic number")
	ErrInvalidVersion   = errors.New("persistence: unsupported format version")
	ErrChecksumMismatch = errors.New("persistence: body checksum mismatch")
)

// Save writes kind's header followed by idx's serialised body, optionally
// zstd-compressed, to w. The header's checksum covers the uncompressed
// body so Open can detect corruption regardless of the compression flag.
func Save(w io.Writer, kind IndexType, idx io.WriterTo, compress bool) error {
	var buf bytes.Buffer
	if _, err := idx.WriteTo(&buf); err != nil {
		return err
	}
	checksum := hash.CRC32C(buf.Bytes())

	bw := NewBinaryIndexWriter(w)
	var compressedFlag uint32
	if compress {
		compressedFlag = 1
	}
	if err := bw.WriteHeader(&FileHeader{IndexType: kind, Compressed: compressedFlag, Checksum: checksum}); err != nil {
		return err
	}

	if !compress {
		_, err := w.Write(buf.Bytes())
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := enc.Write(buf.Bytes()); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Open reads and validates a file header from r, verifies the body
// checksum, and returns the kind the header declares plus a reader
// positioned at the start of the (decompressed, if needed) index body.
// Pass the returned body reader to the matching package's Load
// (hash.Load, trie.Load, or multiblock.Load) per kind.
func Open(r io.Reader) (IndexType, io.Reader, error) {
	br := NewBinaryIndexReader(r)
	header, err := br.ReadHeader()
	if err != nil {
		return 0, nil, err
	}

	var body bytes.Buffer
	if header.Compressed == 0 {
		if _, err := io.Copy(&body, r); err != nil {
			return 0, nil, err
		}
	} else {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return 0, nil, err
		}
		_, err = io.Copy(&body, dec)
		dec.Close()
		if err != nil {
			return 0, nil, err
		}
	}

	if got := hash.CRC32C(body.Bytes()); got != header.Checksum {
		return 0, nil, fmt.Errorf("%w: header declares 0x%08x, body hashes to 0x%08x", ErrChecksumMismatch, header.Checksum, got)
	}

	return header.IndexType, &body, nil
}
