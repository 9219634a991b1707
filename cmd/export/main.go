// export is the admin CSV export tool. It reads every listing from
// the configured store and writes a listings CSV plus a claims CSV
// for the requested year.
//
// Configuration comes from the same environment variables as the
// library (STORE_BACKEND, WARDSHARE_DB_PATH, ...); the year and
// output prefix are flags:
//
//	export -year 2026 -out redistribution
//
// writes redistribution_2026_listings.csv and
// redistribution_2026_claims.csv.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wardshare/wardshare/config"
	"github.com/wardshare/wardshare/internal/export"
	"github.com/wardshare/wardshare/internal/store"
)

func main() {
	year := flag.Int("year", time.Now().Year(), "Year to export (0 for all years)")
	out := flag.String("out", "redistribution", "Output file prefix")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	s, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("export: open store: %v", err)
	}
	defer s.Close()

	listings, err := s.List(ctx)
	if err != nil {
		log.Fatalf("export: read listings: %v", err)
	}

	suffix := "all"
	if *year != 0 {
		suffix = fmt.Sprintf("%d", *year)
	}

	listingsPath := fmt.Sprintf("%s_%s_listings.csv", *out, suffix)
	n, err := writeFile(listingsPath, func(f *os.File) (int, error) {
		return export.WriteListings(f, listings, *year)
	})
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	log.Printf("export: wrote %d listings to %s", n, listingsPath)

	claimsPath := fmt.Sprintf("%s_%s_claims.csv", *out, suffix)
	n, err = writeFile(claimsPath, func(f *os.File) (int, error) {
		return export.WriteClaims(f, listings, *year)
	})
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	log.Printf("export: wrote %d claims to %s", n, claimsPath)
}

func writeFile(path string, write func(*os.File) (int, error)) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	n, err := write(f)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	return n, f.Close()
}
