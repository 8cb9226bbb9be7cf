package whitelist

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rigado/ipsp"
)

const addressKey = "address"

// decode reads the address of every block of r in file order. A block opens
// with a line starting with '{' and closes with a line starting with '}'; its
// first valid address line is its entry. Other lines, address lines outside
// a block and addresses that do not parse are skipped.
func decode(r io.Reader) ([]ipsp.Addr, error) {
	var out []ipsp.Addr
	var open, found bool

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "{"):
			open, found = true, false
		case strings.HasPrefix(line, "}"):
			open = false
		case open && !found:
			if a, ok := decodeLine(line); ok {
				out = append(out, a)
				found = true
			}
		}
	}

	return out, sc.Err()
}

// decodeLine accepts `address="AA:BB:CC:DD:EE:FF"` with optional whitespace
// around the key, the '=' and the value.
func decodeLine(line string) (ipsp.Addr, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, addressKey) {
		return "", false
	}

	v := strings.TrimSpace(line[len(addressKey):])
	if !strings.HasPrefix(v, "=") {
		return "", false
	}
	v = strings.Trim(strings.TrimSpace(v[1:]), `"`)

	a, err := ipsp.ParseAddr(v)
	if err != nil {
		return "", false
	}
	return a, true
}

// encode writes one block for a.
func encode(w io.Writer, a ipsp.Addr) error {
	_, err := fmt.Fprintf(w, "{\n\t%s=\"%s\"\n}\n", addressKey, a)
	return err
}

func contains(list []ipsp.Addr, a ipsp.Addr) bool {
	for _, v := range list {
		if v.Equal(a) {
			return true
		}
	}
	return false
}
