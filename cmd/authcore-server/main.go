package main

import (
	"os"

	"github.com/MrEthical07/authcore/cmd/authcore-server/app"
)

func main() {
	if err := app.NewServerCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
