package main

import (
	"log"

	"rcavault/services/rcad"
)

func main() {
	if err := rcad.Main(); err != nil {
		log.Fatal(err)
	}
}
