// Package lowpan talks to the kernel 6LoWPAN controller pseudo-file.
package lowpan

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
)

// Controller requests and lists 6LoWPAN links through the control file at
// Path. Every call opens and closes the file.
type Controller struct {
	Path   string
	logger ipsp.Logger
}

// New returns a controller for path, the default location if empty.
func New(path string, l ipsp.Logger) *Controller {
	if path == "" {
		path = ipsp.DefaultControllerPath
	}
	return &Controller{Path: path, logger: ipsp.ComponentLogger(l, "lowpan")}
}

// Connect asks the kernel to open a link to the LE public address a.
func (c *Controller) Connect(a ipsp.Addr) error {
	return c.write("connect", a)
}

// Disconnect asks the kernel to close the link to a.
func (c *Controller) Disconnect(a ipsp.Addr) error {
	return c.write("disconnect", a)
}

func (c *Controller) write(verb string, a ipsp.Addr) error {
	f, err := os.OpenFile(c.Path, os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrap(err, "can't open 6lowpan controller")
	}
	defer f.Close()

	// address type 1: LE public
	cmd := fmt.Sprintf("%s %s 1", verb, a)
	if _, err := f.Write([]byte(cmd)); err != nil {
		return errors.Wrapf(err, "%v %v", verb, a)
	}

	c.logger.Infof("%v %v", verb, a)
	return nil
}

// Connections returns the addresses of the current links. The file lists
// one link per line, e.g. "00:11:22:33:44:55 (type 1)".
func (c *Controller) Connections() ([]ipsp.Addr, error) {
	b, err := ioutil.ReadFile(c.Path)
	if err != nil {
		return nil, errors.Wrap(err, "can't read 6lowpan controller")
	}

	var out []ipsp.Addr
	for _, tok := range strings.Fields(string(b)) {
		if len(tok) != ipsp.AddrLen {
			continue
		}
		a, err := ipsp.ParseAddr(tok)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
