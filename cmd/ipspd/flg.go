package main

import (
	"github.com/rigado/ipsp"
	"github.com/urfave/cli"
)

var (
	flgDevice        = cli.StringFlag{Name: "device, i", Value: "hci0", Usage: "Bluetooth controller"}
	flgWindow        = cli.IntFlag{Name: "window, w", Value: 5, Usage: "Scan window in seconds (1 to 30)"}
	flgInterval      = cli.IntFlag{Name: "interval, t", Value: 10, Usage: "Pause between scans in seconds (1 to 300)"}
	flgUseWhitelist  = cli.BoolFlag{Name: "use-whitelist, W", Usage: "Only connect devices in the whitelist"}
	flgAuth          = cli.StringFlag{Name: "auth, a", Usage: "Authenticate with `SSID:KEY`, KEY being 6 digits"}
	flgAuthLocal     = cli.BoolFlag{Name: "auth-local", Usage: "Authenticate with the SSID and key of the local wireless configuration"}
	flgWifi          = cli.IntFlag{Name: "wifi, n", Value: 0, Usage: "Wireless interface section used by --auth-local"}
	flgWhitelistFile = cli.StringFlag{Name: "whitelist-file", Value: ipsp.DefaultWhitelistPath, Usage: "Whitelist location"}
	flgController    = cli.StringFlag{Name: "controller", Value: ipsp.DefaultControllerPath, Usage: "6LoWPAN controller file"}
	flgVerbose       = cli.BoolFlag{Name: "verbose", Usage: "Log everything"}
	flgJSON          = cli.BoolFlag{Name: "json", Usage: "Print lists as JSON"}
)
