package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"
)

// S2 wraps an inner codec and compresses its output with S2 (an extended
// Snappy). Worth it for larger values on remote stores where bytes, not
// operations, drive cost; pointless for small index entries.
type S2 struct {
	Inner Codec
}

func (c S2) inner() Codec {
	if c.Inner == nil {
		return Default
	}
	return c.Inner
}

// Marshal encodes the value with the inner codec and compresses the result.
func (c S2) Marshal(v any) ([]byte, error) {
	raw, err := c.inner().Marshal(v)
	if err != nil {
		return nil, err
	}
	return s2.Encode(nil, raw), nil
}

// Unmarshal decompresses the data and decodes it with the inner codec.
func (c S2) Unmarshal(data []byte, v any) error {
	raw, err := s2.Decode(nil, data)
	if err != nil {
		return fmt.Errorf("s2 decode: %w", err)
	}
	return c.inner().Unmarshal(raw, v)
}

// Name returns "s2+<inner>".
func (c S2) Name() string { return "s2+" + c.inner().Name() }

// LZ4 wraps an inner codec and compresses its output with LZ4 block
// compression. Incompressible payloads are stored raw behind a flag byte, so
// Marshal never inflates small values by more than one byte.
type LZ4 struct {
	Inner Codec
}

const (
	lz4FlagRaw        = 0
	lz4FlagCompressed = 1
)

func (c LZ4) inner() Codec {
	if c.Inner == nil {
		return Default
	}
	return c.Inner
}

// Marshal encodes the value with the inner codec and compresses the result.
func (c LZ4) Marshal(v any) ([]byte, error) {
	raw, err := c.inner().Marshal(v)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 1+binary.MaxVarintLen64)
	header[0] = lz4FlagCompressed
	n := 1 + binary.PutUvarint(header[1:], uint64(len(raw)))

	buf := make([]byte, n+lz4.CompressBlockBound(len(raw)))
	copy(buf, header[:n])

	var compressor lz4.Compressor
	sz, err := compressor.CompressBlock(raw, buf[n:])
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if sz == 0 || sz >= len(raw) {
		// Incompressible, store raw.
		out := make([]byte, 1+len(raw))
		out[0] = lz4FlagRaw
		copy(out[1:], raw)
		return out, nil
	}
	return buf[:n+sz], nil
}

// Unmarshal decompresses the data and decodes it with the inner codec.
func (c LZ4) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("lz4 decode: empty payload")
	}
	switch data[0] {
	case lz4FlagRaw:
		return c.inner().Unmarshal(data[1:], v)
	case lz4FlagCompressed:
		rawLen, n := binary.Uvarint(data[1:])
		if n <= 0 {
			return fmt.Errorf("lz4 decode: malformed length header")
		}
		raw := make([]byte, rawLen)
		if _, err := lz4.UncompressBlock(data[1+n:], raw); err != nil {
			return fmt.Errorf("lz4 decode: %w", err)
		}
		return c.inner().Unmarshal(raw, v)
	default:
		return fmt.Errorf("lz4 decode: unknown flag %d", data[0])
	}
}

// Name returns "lz4+<inner>".
func (c LZ4) Name() string { return "lz4+" + c.inner().Name() }
