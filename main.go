package main

import (
	"os"

	"github.com/go-membergate/membergate/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
