// cmd/seeder/main.go
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/unclebandit/coldmail-backend/internal/db"
	"github.com/unclebandit/coldmail-backend/internal/repository"
)

func main() {
	importDir := flag.String("import", "", "copy scheduled_emails.csv and sent_mails.csv from this directory into Postgres")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, db.Settings{URL: os.Getenv("DATABASE_URL")})
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	seedFiles := []string{
		"seed/schema.sql",
	}

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", file, err)
		}

		_, err = conn.ExecContext(ctx, string(content))
		if err != nil {
			log.Fatalf("failed to execute %s: %v", file, err)
		}
		fmt.Printf("Seeded: %s\n", file)
	}

	if *importDir != "" {
		if err := importCSV(ctx, conn, *importDir); err != nil {
			log.Fatalf("import failed: %v", err)
		}
	}

	fmt.Println("Database seeding completed successfully!")
}

// importCSV replaces the Postgres scheduled emails with the CSV store's and
// appends its log entries.
func importCSV(ctx context.Context, conn *sql.DB, dir string) error {
	records, err := repository.NewCSVScheduledEmailRepository(dir).ReadAll(ctx)
	if err != nil {
		return err
	}
	if err := (&repository.PostgresScheduledEmailRepository{DB: conn}).WriteAll(ctx, records); err != nil {
		return err
	}
	fmt.Printf("Imported %d scheduled emails\n", len(records))

	logs, err := repository.NewCSVEmailLogRepository(dir).List(ctx)
	if err != nil {
		return err
	}
	pgLogs := &repository.PostgresEmailLogRepository{DB: conn}
	for _, entry := range logs {
		if err := pgLogs.Append(ctx, entry); err != nil {
			return err
		}
	}
	fmt.Printf("Imported %d log entries\n", len(logs))
	return nil
}
