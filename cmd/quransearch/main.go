// Command quransearch is the command-line client for the search engine. It
// builds the index in-process from the configured corpus, so it needs no
// running service; reload and import talk to Kafka and PostgreSQL.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/quran-search/cmd/quransearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
