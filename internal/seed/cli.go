package seed

import "os"

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Lomba Seed Tool
===============

Registers a demo scout event (Tapak Kemah, Pionering, LKBB, Semaphore,
the individual Pidato and the unpublished Sandi), submits every judge's
score sheet concurrently and verifies the Putra and Putri leaderboards.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -teams int
        Teams per category (default 6)
  -judges int
        Judges scoring every team (default 3)
  -resubmit int
        Sheets sent twice to exercise duplicate detection (default 10)
  -seed uint
        Seed of the demo data (default 2024)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -wait duration
        How long to wait for queued sheets (default 1m)
  -verbose
        Log every leaderboard row
  -help
        Show this help message

Running the tool twice against the same service is safe: registrations
are kept and resent sheets are answered as duplicates.
`)
}
