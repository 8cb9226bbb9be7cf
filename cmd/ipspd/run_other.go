// +build darwin dragonfly freebsd netbsd openbsd

package main

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func cmdRun(c *cli.Context) error {
	return errors.New("the daemon needs the Linux Bluetooth stack")
}
