package main

import (
	"log"

	"github.com/chimehook/chimehook/cmd/chimectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
