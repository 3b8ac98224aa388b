package embedding

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Format identifies how a stored embedding blob was encoded.
type Format int

const (
	FormatUnknown   Format = iota
	FormatBinary           // magic header + little-endian float32 values
	FormatDelimited        // "0.1,0.2,..." legacy text rows
	FormatJSON             // "[0.1, 0.2, ...]" legacy text rows
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatDelimited:
		return "delimited"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// binaryMagic prefixes every FormatBinary blob.
var binaryMagic = []byte("FGV1")

const binaryHeaderLen = 8 // magic (4) + uint32 dimension (4)

// ErrMalformed is returned when a blob cannot be decoded by any supported format.
var ErrMalformed = errors.New("malformed embedding")

// Encode serializes a vector in FormatBinary.
func Encode(v Vector) []byte {
	buf := make([]byte, binaryHeaderLen+4*len(v))
	copy(buf, binaryMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(v)))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[binaryHeaderLen+4*i:], math.Float32bits(x))
	}
	return buf
}

// IsBinary reports whether the blob carries the FormatBinary header.
func IsBinary(blob []byte) bool {
	return len(blob) >= len(binaryMagic) && bytes.Equal(blob[:len(binaryMagic)], binaryMagic)
}

// Decode parses a stored blob. Tagged binary blobs are decoded strictly; anything else
// is treated as legacy text and tried as comma-delimited numbers first, then as a JSON array.
func Decode(blob []byte) (Vector, Format, error) {
	if len(blob) == 0 {
		return nil, FormatUnknown, fmt.Errorf("%w: empty blob", ErrMalformed)
	}

	if IsBinary(blob) {
		v, err := DecodeBinary(blob)
		if err != nil {
			return nil, FormatUnknown, err
		}
		return v, FormatBinary, nil
	}

	if !utf8.Valid(blob) {
		return nil, FormatUnknown, fmt.Errorf("%w: not binary and not text", ErrMalformed)
	}

	if v, err := DecodeDelimited(string(blob)); err == nil {
		return v, FormatDelimited, nil
	}
	if v, err := DecodeJSON(blob); err == nil {
		return v, FormatJSON, nil
	}

	return nil, FormatUnknown, fmt.Errorf("%w: unrecognized text encoding", ErrMalformed)
}

// DecodeBinary parses a FormatBinary blob.
func DecodeBinary(blob []byte) (Vector, error) {
	if !IsBinary(blob) || len(blob) < binaryHeaderLen {
		return nil, fmt.Errorf("%w: missing binary header", ErrMalformed)
	}
	dim := int(binary.LittleEndian.Uint32(blob[4:8]))
	payload := blob[binaryHeaderLen:]
	if dim == 0 || len(payload) != 4*dim {
		return nil, fmt.Errorf("%w: header says %d values, payload has %d bytes", ErrMalformed, dim, len(payload))
	}

	v := make(Vector, dim)
	for i := range v {
		x := math.Float32frombits(binary.LittleEndian.Uint32(payload[4*i:]))
		if !isFinite(float64(x)) {
			return nil, fmt.Errorf("%w: non-finite value at %d", ErrMalformed, i)
		}
		v[i] = x
	}
	return v, nil
}

// DecodeDelimited parses comma-separated decimal numbers.
func DecodeDelimited(s string) (Vector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty text", ErrMalformed)
	}

	parts := strings.Split(s, ",")
	v := make(Vector, 0, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrMalformed, i, err)
		}
		x, ok := narrow(f)
		if !ok {
			return nil, fmt.Errorf("%w: non-finite value at %d", ErrMalformed, i)
		}
		v = append(v, x)
	}
	return v, nil
}

// DecodeJSON parses a JSON array of numbers.
func DecodeJSON(blob []byte) (Vector, error) {
	var values []float64
	if err := json.Unmarshal(blob, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrMalformed)
	}

	v := make(Vector, len(values))
	for i, f := range values {
		x, ok := narrow(f)
		if !ok {
			return nil, fmt.Errorf("%w: non-finite value at %d", ErrMalformed, i)
		}
		v[i] = x
	}
	return v, nil
}

// narrow converts f to float32 and reports whether the result is still finite.
// Values beyond the float32 range overflow to infinity.
func narrow(f float64) (float32, bool) {
	x := float32(f)
	return x, isFinite(f) && isFinite(float64(x))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
