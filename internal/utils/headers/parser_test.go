package headers

import (
	"reflect"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	in := []string{"accept-language: es-CL,es;q=0.9", "Referer: https://www.red.cl/"}
	out, err := ParseHeaders(in)
	if err != nil {
		t.Fatal(err)
	}
	expected := map[string]string{"Accept-Language": "es-CL,es;q=0.9", "Referer": "https://www.red.cl/"}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("unexpected parse result: %#v", out)
	}
}

func TestParseHeadersRejectsMalformed(t *testing.T) {
	for _, in := range []string{"BadHeader", ": value", "Bad Name: x"} {
		if _, err := ParseHeaders([]string{in}); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestSplit(t *testing.T) {
	got := Split("Accept-Language: es-CL,es;q=0.9 | DNT: 1 |")
	want := []string{"Accept-Language: es-CL,es;q=0.9", "DNT: 1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split = %#v", got)
	}
}
