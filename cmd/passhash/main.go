package main

import (
	"flag"
	"os"

	"github.com/pulseritas/storefront/internal/platform/config"
	"github.com/pulseritas/storefront/internal/tools/passhash"
)

func main() {
	cfg, err := passhash.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := passhash.Run(cfg, os.Stdout); err != nil {
		config.Exitf("hash password: %v", err)
	}
}
