package main

import (
	log "github.com/charmbracelet/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
