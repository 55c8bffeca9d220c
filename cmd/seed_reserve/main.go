package main

import (
	"context"
	"flag"
	"log"
	"os"

	"magnum_stars/internal/db"
	"magnum_stars/internal/repository"
)

// Seeds or tops up the exchange reserve. Run once after migrations; the
// exchange refuses to operate without a reserve row.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	magnum := flag.Float64("magnum", 1_000_000, "magnum coins pool")
	stars := flag.Float64("stars", 1_000_000, "stars pool")
	flag.Parse()

	pool := db.Connect(dsn)
	defer pool.Close()

	ctx := context.Background()

	_, err := pool.Exec(ctx,
		`INSERT INTO reserve (id, magnum_coins, stars)
		 VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE
		 SET magnum_coins = EXCLUDED.magnum_coins,
		     stars = EXCLUDED.stars,
		     last_updated = NOW()`,
		*magnum, *stars,
	)
	if err != nil {
		log.Fatalf("seed reserve failed: %v", err)
	}

	res, err := repository.NewReserveRepository(pool).Get(ctx)
	if err != nil {
		log.Fatalf("read back reserve: %v", err)
	}
	log.Printf("reserve seeded: magnumCoins=%.2f stars=%.2f\n", res.MagnumCoins, res.Stars)
}
