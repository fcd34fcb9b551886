package main

import "github.com/ripsline/job-scraper-node/internal/cli"

const version = "0.1.0"

func main() {
	// Run as root on a fresh Debian/Ubuntu host, from the directory
	// holding the scraper files:
	//   sudo job-scraper-install
	// Re-running is safe; existing user, browser and .env are kept.
	cli.Execute(version)
}
