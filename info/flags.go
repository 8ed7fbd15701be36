package info

import (
	"flag"
	"fmt"

	"github.com/safing/seedcache/modules"
)

var showVersion bool

func init() {
	modules.Register("info", prep, nil, nil)

	flag.BoolVar(&showVersion, "version", false, "show version and exit")
}

func prep() error {
	err := CheckVersion()
	if err != nil {
		return err
	}

	if showVersion {
		fmt.Println(FullVersion())
		return modules.ErrCleanExit
	}

	return nil
}
