// bucket.go -- fixed-size 4096-byte page codec
//
// Page layout:
//
//	offset  size  field
//	0       1     local level (u8)
//	1       4095  packed records, each as in record.go, followed by 0x00 filler
//
// Parsing reads the level, then repeatedly peeks the next byte: 0x00 means
// filler (advance one byte and continue), 0x01 means a record starts here.
// Parsing stops at the end of the page. Serialization always rewrites the
// page fully packed from offset 1, eliminating any holes left by prior
// in-place shrinks -- one of two equally valid ways to handle holes.

package xhashdb

const (
	pageBytes         = 4096
	bucketHeaderBytes = 1 // local level, u8
)

// bucket is the in-memory form of one page: its local depth and the
// records it currently holds.
type bucket struct {
	index   uint32
	level   uint8
	records []record
}

// usedBytes returns the number of bytes currently occupied by the header
// plus all packed records.
func (b *bucket) usedBytes() int {
	n := bucketHeaderBytes
	for _, r := range b.records {
		n += r.byteLen()
	}
	return n
}

// remainingBytes returns the free space left in the page.
func (b *bucket) remainingBytes() int {
	return pageBytes - b.usedBytes()
}

// find returns the record matching both hash and key exactly, and its
// index in b.records, or (_, -1, false) if none match. A hash match alone
// is not enough: two distinct keys can collide on a 64-bit hash, and such
// records must coexist in the same bucket rather than overwrite one
// another.
func (b *bucket) find(hash uint64, key string) (record, int, bool) {
	for i, r := range b.records {
		if r.hash == hash && r.key == key {
			return r, i, true
		}
	}
	return record{}, -1, false
}

// encode serializes the bucket into a full pageBytes-length page.
func (b *bucket) encode() []byte {
	buf := make([]byte, 0, pageBytes)
	buf = append(buf, b.level)
	for _, r := range b.records {
		buf = r.encode(buf)
	}
	if len(buf) > pageBytes {
		// Should never happen: callers are responsible for checking
		// remainingBytes() before mutating a bucket.
		panic("xhashdb: bucket overflow during encode")
	}
	out := make([]byte, pageBytes)
	copy(out, buf)
	return out
}

// decodeBucket parses a pageBytes-length page into a bucket.
func decodeBucket(page []byte, index uint32) (*bucket, error) {
	if len(page) != pageBytes {
		return nil, NewError(ErrCodeCorruptPage, "short page read", nil).
			WithDetail("bucket", index).WithDetail("len", len(page))
	}

	b := &bucket{index: index, level: page[0]}
	rest := page[bucketHeaderBytes:]

	for len(rest) > 0 {
		if rest[0] == 0 {
			rest = rest[1:]
			continue
		}
		r, tail, err := decodeRecord(rest)
		if err != nil {
			return nil, NewError(ErrCodeCorruptPage, "malformed record in bucket", err).
				WithDetail("bucket", index)
		}
		b.records = append(b.records, r)
		rest = tail
	}

	if b.usedBytes() > pageBytes {
		return nil, NewError(ErrCodeCorruptPage, "bucket level implies more records than page holds", nil).
			WithDetail("bucket", index)
	}

	return b, nil
}
