package main

import (
	"os"

	"opendownloadmanager/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}