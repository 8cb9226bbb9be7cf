// Command ipspd discovers IPSP nodes, pairs them and connects them over
// 6LoWPAN. Subcommands edit the whitelist and list the current links.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rigado/ipsp"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()

	app.Name = "ipspd"
	app.Usage = "IPSP 6LoWPAN discovery and provisioning daemon"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		flgDevice,
		flgWindow,
		flgInterval,
		flgUseWhitelist,
		flgAuth,
		flgAuthLocal,
		flgWifi,
		flgWhitelistFile,
		flgController,
		flgVerbose,
		flgJSON,
	}

	app.Commands = []cli.Command{
		{
			Name:      "addwl",
			Usage:     "Add a device address to the whitelist",
			ArgsUsage: "ADDR",
			Action:    cmdAddWhitelist,
		},
		{
			Name:      "rmwl",
			Usage:     "Remove a device address from the whitelist and disconnect it",
			ArgsUsage: "ADDR",
			Action:    cmdRemoveWhitelist,
		},
		{
			Name:   "clearwl",
			Usage:  "Remove every address from the whitelist",
			Action: cmdClearWhitelist,
		},
		{
			Name:   "lswl",
			Usage:  "List the whitelist",
			Action: cmdListWhitelist,
		},
		{
			Name:   "lscon",
			Usage:  "List the 6LoWPAN connections",
			Action: cmdListConnections,
		},
	}

	app.Before = setup
	app.Action = cmdRun

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", app.Name, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	if c.GlobalBool("verbose") {
		ipsp.SetLogLevelMax()
	}
	return nil
}

// chkErr maps the error classes to the messages a user can act on.
func chkErr(err error) error {
	switch errors.Cause(err) {
	case nil:
		return nil
	case context.Canceled:
		return nil
	case ipsp.ErrLocked:
		return errors.New("whitelist is in use by another process, try again")
	case ipsp.ErrInvalidAddr:
		return errors.Wrap(err, "address must be of the form 00:11:22:33:44:55")
	}
	return err
}
