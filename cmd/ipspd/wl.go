package main

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"github.com/rigado/ipsp/linux/lowpan"
	"github.com/rigado/ipsp/whitelist"
	"github.com/urfave/cli"
)

func openWhitelist(c *cli.Context) (*whitelist.Store, error) {
	cfg := whitelist.DefaultConfig()
	cfg.Path = c.GlobalString("whitelist-file")
	cfg.SwapPath = cfg.Path + ".swp"
	return whitelist.New(cfg)
}

func addrArg(c *cli.Context) (ipsp.Addr, error) {
	if c.NArg() != 1 {
		return "", errors.Wrap(ipsp.ErrConfig, "expected one address argument")
	}
	return ipsp.ParseAddr(c.Args().First())
}

func cmdAddWhitelist(c *cli.Context) error {
	a, err := addrArg(c)
	if err != nil {
		return chkErr(err)
	}
	wl, err := openWhitelist(c)
	if err != nil {
		return err
	}
	return chkErr(wl.Add(context.Background(), a))
}

func cmdRemoveWhitelist(c *cli.Context) error {
	a, err := addrArg(c)
	if err != nil {
		return chkErr(err)
	}
	wl, err := openWhitelist(c)
	if err != nil {
		return err
	}
	if err := wl.Remove(context.Background(), a); err != nil {
		return chkErr(err)
	}

	// a removed device must not keep its link
	if err := lowpan.New(c.GlobalString("controller"), nil).Disconnect(a); err != nil {
		ipsp.GetLogger().Warnf("disconnect %v: %v", a, err)
	}
	return nil
}

func cmdClearWhitelist(c *cli.Context) error {
	wl, err := openWhitelist(c)
	if err != nil {
		return err
	}
	return chkErr(wl.Clear(context.Background()))
}

func cmdListWhitelist(c *cli.Context) error {
	wl, err := openWhitelist(c)
	if err != nil {
		return err
	}
	list, err := wl.List(context.Background())
	if err != nil {
		return chkErr(err)
	}
	return printAddrs(os.Stdout, list, c.GlobalBool("json"))
}

func cmdListConnections(c *cli.Context) error {
	list, err := lowpan.New(c.GlobalString("controller"), nil).Connections()
	if err != nil {
		return err
	}
	return printAddrs(os.Stdout, list, c.GlobalBool("json"))
}

func printAddrs(w io.Writer, list []ipsp.Addr, asJSON bool) error {
	if asJSON {
		if list == nil {
			list = []ipsp.Addr{}
		}
		b, err := jsoniter.Marshal(list)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}

	for _, a := range list {
		if _, err := fmt.Fprintln(w, a); err != nil {
			return err
		}
	}
	return nil
}
