package discord

import (
	"log"
	"time"
)

// step mide cuánto tardó un handler; útil para detectar interacciones que se
// acercan al timeout de Discord.
func step(label string) func() {
	start := time.Now()
	return func() { log.Printf("[trace] %s tardó %s", label, time.Since(start)) }
}
