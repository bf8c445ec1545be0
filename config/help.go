package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `taxi-dispatch — order dispatch and lifecycle core

Usage:
  dispatch [flags]

Flags:
  -config-path string   path to the config yaml file (default "config.yaml")
  -help                 show this message

Configuration is read from the yaml file and the environment; environment
variables win. See config/config.go for the full list of keys.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}
