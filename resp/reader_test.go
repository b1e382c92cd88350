package resp

import (
	"bufio"
	"strings"
	"testing"
)

func TestReadCommandMultiBulk(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"))
	args, err := ReadCommand(r)
	if err != nil {
		t.Fatalf("ReadCommand: %v", err)
	}
	want := []string{"SET", "foo", "bar"}
	if len(args) != len(want) {
		t.Fatalf("got %d args, want %d", len(args), len(want))
	}
	for i, w := range want {
		if string(args[i]) != w {
			t.Fatalf("arg %d = %q, want %q", i, args[i], w)
		}
	}
}

func TestReadCommandInline(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("PING hello\r\n"))
	args, err := ReadCommand(r)
	if err != nil {
		t.Fatalf("ReadCommand: %v", err)
	}
	if len(args) != 2 || string(args[0]) != "PING" || string(args[1]) != "hello" {
		t.Fatalf("unexpected inline parse: %v", args)
	}
}

func TestReadCommandEmptyMultiBulk(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*0\r\n"))
	args, err := ReadCommand(r)
	if err != nil {
		t.Fatalf("ReadCommand: %v", err)
	}
	if len(args) != 0 {
		t.Fatalf("expected zero args, got %v", args)
	}
}

func TestReadCommandMalformedBulkLength(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*1\r\n$abc\r\nfoo\r\n"))
	if _, err := ReadCommand(r); err == nil {
		t.Fatal("expected a protocol error for a non-numeric bulk length")
	} else if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("expected *ProtocolError, got %T", err)
	}
}

func TestReadCommandOversizedMultiBulkRejected(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*99999999999\r\n"))
	if _, err := ReadCommand(r); err == nil {
		t.Fatal("expected a protocol error for an oversized multibulk length")
	}
}
