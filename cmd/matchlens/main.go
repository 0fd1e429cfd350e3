// matchlens ingest service
//
// Fetches football-data.org competitions, stores each raw payload once per
// freshness window in fd_raw_ingest, and announces new records on Redis.
//
//	matchlens serve          HTTP adapter + scheduled refresh
//	matchlens ingest PL CL   one-shot ingest
//	matchlens migrate        apply database migrations
package main

import (
	"os"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
