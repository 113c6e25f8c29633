package xhashdb

import "testing"

func TestHashKeyStable(t *testing.T) {
	a := hashKey("MY_KEY")
	b := hashKey("MY_KEY")
	if a != b {
		t.Fatalf("hashKey not stable across calls: %d != %d", a, b)
	}
	if hashKey("MY_KEY") == hashKey("other key") {
		t.Fatal("distinct keys hashed to the same value (extremely unlikely, check hashKey)")
	}
}

func TestRemainder(t *testing.T) {
	cases := []struct {
		h     uint64
		level uint8
		want  uint64
	}{
		{0b1010, 0, 0},
		{0b1010, 1, 0},
		{0b1010, 2, 0b10},
		{0b1010, 4, 0b1010},
		{0b1110, 3, 0b110},
	}
	for _, c := range cases {
		if got := remainder(c.h, c.level); got != c.want {
			t.Fatalf("remainder(%b, %d) = %b, want %b", c.h, c.level, got, c.want)
		}
	}
}
