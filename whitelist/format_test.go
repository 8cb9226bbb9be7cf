package whitelist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rigado/ipsp"
)

func TestDecodeBlocks(t *testing.T) {
	content := `address="00:00:00:00:00:01"
{
	address="00:00:00:00:00:02"
	address="00:00:00:00:00:03"
}
address="00:00:00:00:00:04"
{
	name="x"
	address = "00:00:00:00:00:05"
}
{
	address="00:00:00:00:00:06"
`
	list, err := decode(strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	want := []ipsp.Addr{"00:00:00:00:00:02", "00:00:00:00:00:05", "00:00:00:00:00:06"}
	if len(list) != len(want) {
		t.Fatalf("want %v, have %v", want, list)
	}
	for i := range want {
		if list[i] != want[i] {
			t.Fatalf("want %v, have %v", want, list)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	var b bytes.Buffer
	in := []ipsp.Addr{"00:00:00:00:00:01", "AA:BB:CC:DD:EE:FF"}
	for _, a := range in {
		if err := encode(&b, a); err != nil {
			t.Fatal(err)
		}
	}

	list, err := decode(&b)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0] != in[0] || list[1] != in[1] {
		t.Fatalf("unexpected list %v", list)
	}
}
