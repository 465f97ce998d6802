package mapping

import (
	"errors"
	"fmt"
)

const (
	vlqMaxShift        = 30
	vlqBaseShift       = 5
	vlqBase            = 1 << vlqBaseShift
	vlqBaseMask        = vlqBase - 1
	vlqContinuationBit = vlqBase

	base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

var errVLQUnexpectedEnd = errors.New("unexpected end of VLQ value")

//nolint:gochecknoglobals
var base64Values = func() (table [256]int8) {
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(base64Alphabet); i++ {
		table[base64Alphabet[i]] = int8(i)
	}
	return table
}()

// appendVLQ appends the base64 VLQ encoding of value to buf.
func appendVLQ(buf []byte, value int) []byte {
	vlq := value << 1
	if value < 0 {
		vlq = (-value << 1) | 1
	}
	for {
		digit := vlq & vlqBaseMask
		vlq >>= vlqBaseShift
		if vlq > 0 {
			digit |= vlqContinuationBit
		}
		buf = append(buf, base64Alphabet[digit])
		if vlq == 0 {
			return buf
		}
	}
}

// vlqReader decodes consecutive base64 VLQ values from a mappings string.
type vlqReader struct {
	s   string
	pos int
}

// atSegmentEnd reports whether the reader sits at the end of a segment.
func (r *vlqReader) atSegmentEnd() bool {
	return r.pos >= len(r.s) || r.s[r.pos] == ',' || r.s[r.pos] == ';'
}

func (r *vlqReader) next() (int, error) {
	var result, shift int
	start := r.pos
	for {
		if r.pos >= len(r.s) {
			return 0, errVLQUnexpectedEnd
		}
		c := r.s[r.pos]
		digit := int(base64Values[c])
		if digit < 0 {
			return 0, fmt.Errorf("invalid base64 VLQ character %q at offset %d", c, r.pos)
		}
		r.pos++

		if shift > vlqMaxShift {
			return 0, fmt.Errorf("VLQ value at offset %d overflows 32 bits", start)
		}
		result += (digit & vlqBaseMask) << shift
		shift += vlqBaseShift
		if digit&vlqContinuationBit == 0 {
			break
		}
	}

	if result&1 == 1 {
		return -(result >> 1), nil
	}
	return result >> 1, nil
}
