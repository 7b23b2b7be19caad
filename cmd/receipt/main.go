// Command receipt signs and verifies FileFlow receipt signatures offline and mints
// bearer tokens for local testing.
package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
