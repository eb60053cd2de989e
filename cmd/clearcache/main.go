// Maintenance tool: wipes the stock price cache, or a single ticker when one
// is given on the command line. Next reads repopulate from the quote source.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	godotenv.Load()
	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		log.Fatal("POSTGRES_URL is required")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if len(os.Args) > 1 {
		ticker := strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(os.Args[1]), ".SA"))
		res, err := db.ExecContext(ctx, `DELETE FROM stock_cache WHERE ticker = $1`, ticker)
		if err != nil {
			log.Fatalf("delete %s failed: %v", ticker, err)
		}
		n, _ := res.RowsAffected()
		fmt.Printf("Removed %d cache entry for %s\n", n, ticker)
		return
	}

	res, err := db.ExecContext(ctx, `DELETE FROM stock_cache`)
	if err != nil {
		log.Fatalf("clear cache failed: %v", err)
	}
	n, _ := res.RowsAffected()
	fmt.Printf("Stock cache cleared, %d entries removed\n", n)
}
