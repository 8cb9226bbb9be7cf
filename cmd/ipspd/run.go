// +build linux

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"github.com/rigado/ipsp/daemon"
	"github.com/rigado/ipsp/linux/hci/mgmt"
	"github.com/rigado/ipsp/linux/hci/socket"
	"github.com/rigado/ipsp/linux/lowpan"
	"github.com/rigado/ipsp/linux/pairing"
	"github.com/urfave/cli"
)

func cmdRun(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := ipsp.GetLogger()

	auth, src, err := buildAuth(c.GlobalString("auth"), c.GlobalBool("auth-local"), c.GlobalInt("wifi"))
	if err != nil {
		return err
	}
	auth, err = startupAuth(ctx, auth, src)
	if err != nil {
		return err
	}

	opts := []ipsp.Option{
		ipsp.OptScanWindow(time.Duration(c.GlobalInt("window")) * time.Second),
		ipsp.OptScanInterval(time.Duration(c.GlobalInt("interval")) * time.Second),
		ipsp.OptLogger(l),
	}

	if c.GlobalBool("use-whitelist") {
		wl, err := openWhitelist(c)
		if err != nil {
			return err
		}
		opts = append(opts, ipsp.OptWhitelist(wl))
	}

	name := c.GlobalString("device")
	radio, err := socket.Open(name, l)
	if err != nil {
		return errors.Wrap(err, "no usable bluetooth controller")
	}
	defer radio.Close()

	if auth.Enabled() {
		id, err := socket.DeviceID(name)
		if err != nil {
			return err
		}
		ms, err := mgmt.NewSocket()
		if err != nil {
			return errors.Wrap(err, "management channel")
		}
		defer ms.Close()

		drv := pairing.NewDriver(mgmt.NewClient(ms, mgmt.WithLogger(l)), uint16(id), pairing.DefaultTimeout, l)
		if err := drv.BringUp(ctx); err != nil {
			return errors.Wrapf(err, "bring up %v", name)
		}
		opts = append(opts, ipsp.OptAuth(auth, src), ipsp.OptPairer(drv))
	}

	d, err := daemon.New(radio, radio, lowpan.New(c.GlobalString("controller"), l), opts...)
	if err != nil {
		return err
	}
	return chkErr(d.Run(ctx))
}
