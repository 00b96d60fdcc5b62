package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"medterms/internal/importer"
	"medterms/internal/repository/postgres"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "", "path to .xlsx or .csv file")
	sheet := flag.String("sheet", "", "sheet name (xlsx only, defaults to the first sheet)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "medterms"),
		os.Getenv("DB_PASSWORD"),
		getEnv("DB_NAME", "medterms"),
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Fatal("Failed to open database connection", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	result, err := importer.New(postgres.NewTermRepo(db), logger).ImportFile(ctx, *file, *sheet)
	if err != nil {
		logger.Fatal("Import failed", zap.Error(err))
	}

	for _, e := range result.Errors {
		logger.Warn("Row skipped", zap.String("error", e))
	}
	fmt.Printf("Processed %d rows: %d categories, %d terms, %d skipped\n",
		result.TotalProcessed, result.Categories, result.Terms, result.Skipped)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
