// cmd/seeder/main.go
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"

	"github.com/wanjiru-dev/storypress-backend/internal/config"
	"github.com/wanjiru-dev/storypress-backend/internal/db"
	"github.com/wanjiru-dev/storypress-backend/internal/logging"
)

// Seeds verified subscribers for local testing of campaign fan-out.
func main() {
	count := flag.Int("count", 25, "number of subscribers to insert")
	domain := flag.String("domain", "example.test", "email domain for seeded addresses")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.Level)

	database, err := db.Open(cfg.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := db.Migrate(cfg.URL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	inserted := 0
	for i := 1; i <= *count; i++ {
		token := make([]byte, 32)
		if _, err := rand.Read(token); err != nil {
			log.Fatal().Err(err).Msg("failed to generate unsubscribe token")
		}

		email := fmt.Sprintf("subscriber%03d@%s", i, *domain)
		result, err := database.Exec(`
            INSERT INTO subscribers (email, verified, unsubscribe_token, verified_at)
            VALUES ($1, TRUE, $2, NOW())
            ON CONFLICT (email) DO NOTHING
        `, email, hex.EncodeToString(token))
		if err != nil {
			log.Fatal().Err(err).Str("email", email).Msg("failed to insert subscriber")
		}
		if affected, _ := result.RowsAffected(); affected > 0 {
			inserted++
		}
	}

	log.Info().Int("requested", *count).Int("inserted", inserted).Msg("seeded subscribers")
}
