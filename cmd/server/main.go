package main

import (
	"log"

	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/config"
)

func main() {
	cfg := config.MustLoad()
	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}
