package wire_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/songledger/songledger/foundation/blockchain/wire"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	tests := []struct {
		kind wire.Kind
		body string
	}{
		{wire.KindPeerList, `['10.0.0.1', '10.0.0.2']`},
		{wire.KindReceiveBC, `{"hash":"a"}END`},
		{wire.KindNewBlock, `{"hash":"a"}`},
		{wire.KindTransaction, `{"user_name":"alice"}`},
		{wire.KindReqChange, `{"hash":"b"}END`},
	}

	for _, tt := range tests {
		payload := wire.Encode(tt.kind, tt.body)
		gotKind, gotBody := wire.Parse(payload)
		if gotKind != tt.kind {
			t.Fatalf("Parse(%q) kind = %v, want %v", payload, gotKind, tt.kind)
		}
		if gotBody != tt.body {
			t.Fatalf("Parse(%q) body = %q, want %q", payload, gotBody, tt.body)
		}
	}
}

func TestRequestBCHasNoBody(t *testing.T) {
	payload := wire.Encode(wire.KindRequestBC, "")
	kind, body := wire.Parse(payload)
	if kind != wire.KindRequestBC || body != "" {
		t.Fatalf("Parse(REQUEST_BC) = (%v, %q)", kind, body)
	}
}

func TestFramingRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := wire.WriteFramed(&buf, "hello world"); err != nil {
		t.Fatal(err)
	}

	got, err := wire.ReadFramed(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello world" {
		t.Fatalf("ReadFramed = %q, want %q", got, "hello world")
	}
}

func TestFramingPreservesOrderOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	wire.WriteFramed(&buf, "first")
	wire.WriteFramed(&buf, "second")

	first, err := wire.ReadFramed(&buf)
	if err != nil || first != "first" {
		t.Fatalf("first message = %q, %v", first, err)
	}
	second, err := wire.ReadFramed(&buf)
	if err != nil || second != "second" {
		t.Fatalf("second message = %q, %v", second, err)
	}
}

func TestReadFramedEOFOnCleanClose(t *testing.T) {
	var buf bytes.Buffer
	_, err := wire.ReadFramed(&buf)
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestChainDumpRoundTrip(t *testing.T) {
	blocks := []string{`{"hash":"a"}`, `{"hash":"b"}`, `{"hash":"c"}`}
	dump := wire.JoinChainDump(blocks)

	got := wire.SplitChainDump(dump)
	if len(got) != len(blocks) {
		t.Fatalf("SplitChainDump returned %d parts, want %d", len(got), len(blocks))
	}
	for i := range blocks {
		if got[i] != blocks[i] {
			t.Fatalf("part %d = %q, want %q", i, got[i], blocks[i])
		}
	}
}

func TestChainDumpEmpty(t *testing.T) {
	got := wire.SplitChainDump("")
	if len(got) != 0 {
		t.Fatalf("SplitChainDump(\"\") = %v, want empty", got)
	}
}

func TestSeenCacheDedups(t *testing.T) {
	c := wire.NewSeenCache()

	if c.SeenBlock("hash-1") {
		t.Fatal("first sighting reported as already seen")
	}
	if !c.SeenBlock("hash-1") {
		t.Fatal("second sighting not detected as a duplicate")
	}
	if c.SeenBlock("hash-2") {
		t.Fatal("distinct hash reported as already seen")
	}
}
