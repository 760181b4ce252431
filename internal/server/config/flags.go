package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/datavault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   relational DSN (postgres:// or a SQLite file path)
//	-k string   bbolt file path for the KV backend
//	-s string   snapshot file path for the reference backend
//	-e string   remote API endpoint (e.g., "http://upstream:8080")
//	-t int      session lifetime, minutes
//
// The function first filters os.Args to only the flags it recognizes
// using flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-s", "-e", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "relational database DSN")
	fs.StringVar(&config.BoltPath, "k", config.BoltPath, "kv store file path")
	fs.StringVar(&config.SnapshotPath, "s", config.SnapshotPath, "reference backend snapshot path")
	fs.StringVar(&config.RemoteEndpoint, "e", config.RemoteEndpoint, "remote API endpoint")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session lifetime (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
}
