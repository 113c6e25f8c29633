// record.go -- bit-exact (hash, key, value) record codec
//
// On-disk layout, little-endian throughout:
//
//	offset  size  field
//	0       1     presence marker (0x01 = present)
//	1       8     hash (u64)
//	9       2     key length Lk  (u16)
//	11      Lk    key bytes
//	11+Lk   2     value length Lv (u16)
//	13+Lk   Lv    value bytes
//
// Total byte length = 13 + Lk + Lv. A record is valid only when the
// presence marker equals 1; a 0x00 presence byte indicates free/erased
// space left behind by an in-place shrink.

package xhashdb

import "encoding/binary"

const (
	recordPresent       = 0x01
	recordHeaderBytes   = 1 // presence marker
	hashBytes           = 8 // u64
	keyLenBytes         = 2 // u16
	valueLenBytes       = 2 // u16
	recordFixedOverhead = recordHeaderBytes + hashBytes + keyLenBytes + valueLenBytes
)

// maxCombinedKeyValueBytes is the largest key+value length that could ever
// fit in a single empty bucket: 4096 - bucketHeaderBytes - recordFixedOverhead.
const maxCombinedKeyValueBytes = pageBytes - bucketHeaderBytes - recordFixedOverhead

// record is the in-memory form of a (hash, key, value) triple.
type record struct {
	hash  uint64
	key   string
	value []byte
}

// byteLen returns the exact on-disk length of r, per the layout above.
func (r record) byteLen() int {
	return recordFixedOverhead + len(r.key) + len(r.value)
}

// encode appends r's on-disk representation to buf and returns the result.
func (r record) encode(buf []byte) []byte {
	var hdr [recordFixedOverhead]byte
	hdr[0] = recordPresent
	binary.LittleEndian.PutUint64(hdr[1:9], r.hash)
	binary.LittleEndian.PutUint16(hdr[9:11], uint16(len(r.key)))

	buf = append(buf, hdr[:]...)
	buf = append(buf, r.key...)

	var vlen [valueLenBytes]byte
	binary.LittleEndian.PutUint16(vlen[:], uint16(len(r.value)))
	buf = append(buf, vlen[:]...)
	buf = append(buf, r.value...)
	return buf
}

// decodeRecord parses one record starting at b[0]. b[0] must be the
// presence marker (the caller peeks it first to distinguish a record from
// filler). It returns the parsed record and the remaining, unconsumed
// slice of b.
func decodeRecord(b []byte) (record, []byte, error) {
	if len(b) < recordFixedOverhead {
		return record{}, nil, NewError(ErrCodeCorruptPage, "truncated record header", nil)
	}
	if b[0] != recordPresent {
		return record{}, nil, NewError(ErrCodeCorruptPage, "record missing presence marker", nil)
	}

	h := binary.LittleEndian.Uint64(b[1:9])
	klen := int(binary.LittleEndian.Uint16(b[9:11]))

	keyStart := 11
	keyEnd := keyStart + klen
	if keyEnd+valueLenBytes > len(b) {
		return record{}, nil, NewError(ErrCodeCorruptPage, "truncated record key", nil)
	}
	key := string(b[keyStart:keyEnd])

	vlenStart := keyEnd
	vlenEnd := vlenStart + valueLenBytes
	vlen := int(binary.LittleEndian.Uint16(b[vlenStart:vlenEnd]))

	valStart := vlenEnd
	valEnd := valStart + vlen
	if valEnd > len(b) {
		return record{}, nil, NewError(ErrCodeCorruptPage, "truncated record value", nil)
	}

	val := make([]byte, vlen)
	copy(val, b[valStart:valEnd])

	return record{hash: h, key: key, value: val}, b[valEnd:], nil
}
