package xhashdb

import "testing"

func TestRecordRoundTrip(t *testing.T) {
	r := record{hash: 0b1110, key: "MY_KEY", value: []byte("MY_VALUE")}
	buf := r.encode(nil)

	if got, want := len(buf), r.byteLen(); got != want {
		t.Fatalf("byteLen mismatch: encoded %d bytes, byteLen() reports %d", got, want)
	}

	got, rest, err := decodeRecord(buf)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no remaining bytes, got %d", len(rest))
	}
	if got.hash != r.hash || got.key != r.key || string(got.value) != string(r.value) {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, r)
	}
}

func TestRecordEmptyValue(t *testing.T) {
	r := record{hash: 42, key: "k", value: nil}
	buf := r.encode(nil)
	got, rest, err := decodeRecord(buf)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if len(rest) != 0 || len(got.value) != 0 {
		t.Fatalf("expected empty value round-trip, got %+v rest=%d", got, len(rest))
	}
}

func TestRecordMissingPresenceMarker(t *testing.T) {
	// Long enough for a full record header, so only the zero marker is wrong.
	buf := make([]byte, recordFixedOverhead)
	if _, _, err := decodeRecord(buf); err == nil {
		t.Fatal("expected error for missing presence marker")
	}
}

func TestRecordMultipleInSequence(t *testing.T) {
	var buf []byte
	recs := []record{
		{hash: 1, key: "a", value: []byte{1}},
		{hash: 2, key: "bb", value: []byte{2, 2}},
		{hash: 3, key: "ccc", value: nil},
	}
	for _, r := range recs {
		buf = r.encode(buf)
	}

	rest := buf
	for i, want := range recs {
		got, r2, err := decodeRecord(rest)
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if got.hash != want.hash || got.key != want.key {
			t.Fatalf("record %d mismatch: got %+v, want %+v", i, got, want)
		}
		rest = r2
	}
	if len(rest) != 0 {
		t.Fatalf("expected no trailing bytes, got %d", len(rest))
	}
}
