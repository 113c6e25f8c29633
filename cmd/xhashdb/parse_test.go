package main

import (
	"testing"

	"github.com/opencoff/xhashdb"
)

func TestParseLinePut(t *testing.T) {
	cmd, err := parseLine(`PUT MY_KEY "MY_VALUE"`)
	if err != nil {
		t.Fatalf("parseLine: %v", err)
	}
	p, ok := cmd.(xhashdb.PutCommand)
	if !ok || p.Key != "MY_KEY" || string(p.Value) != "MY_VALUE" {
		t.Fatalf("parsed = %+v, want PutCommand{MY_KEY, MY_VALUE}", cmd)
	}
}

func TestParseLineGetDeleteExit(t *testing.T) {
	cases := []struct {
		in   string
		want xhashdb.StorageCommand
	}{
		{"GET MY_KEY", xhashdb.GetCommand{Key: "MY_KEY"}},
		{"DELETE MY_KEY", xhashdb.DeleteCommand{Key: "MY_KEY"}},
		{"EXIT", xhashdb.ExitCommand{}},
		{"BEGIN", xhashdb.BeginCommand{}},
		{"COMMIT", xhashdb.CommitCommand{}},
		{"ROLLBACK", xhashdb.RollbackCommand{}},
	}
	for _, c := range cases {
		got, err := parseLine(c.in)
		if err != nil {
			t.Fatalf("parseLine(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("parseLine(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestParseLineQuotedEscapes(t *testing.T) {
	cmd, err := parseLine(`PUT k "line1\nline2\ttabbed\"quote\"\\slash"`)
	if err != nil {
		t.Fatalf("parseLine: %v", err)
	}
	p := cmd.(xhashdb.PutCommand)
	want := "line1\nline2\ttabbed\"quote\"\\slash"
	if string(p.Value) != want {
		t.Fatalf("value = %q, want %q", p.Value, want)
	}
}

func TestParseLineErrors(t *testing.T) {
	cases := []string{
		"",
		"GET",
		"PUT k",
		"FOO k",
		`PUT k "unterminated`,
	}
	for _, in := range cases {
		if _, err := parseLine(in); err == nil {
			t.Fatalf("parseLine(%q) = nil error, want error", in)
		}
	}
}
