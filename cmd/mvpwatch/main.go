// mvpwatch - MVP Spawn Timer Watcher
//
// mvpwatch reads MVP announcements from in-game chat screenshots and sends
// each new spawn timer to webhooks exactly once.
package main

import (
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/mvpwatch/mvpwatch/internal/cli"
)

func main() {
	// A missing .env is fine; tokens may come from the real environment
	_ = godotenv.Load()

	os.Exit(cli.Execute())
}
