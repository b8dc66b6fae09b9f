package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/stemsi/proctored-mcq/internal/config"
	"github.com/stemsi/proctored-mcq/internal/database"
	"github.com/stemsi/proctored-mcq/internal/logger"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/repository"
	"github.com/stemsi/proctored-mcq/internal/service"
)

// seed loads a candidate whitelist (one email per line) and a question bank
// (a JSON array of add-question payloads).
func main() {
	var emailsPath, questionsPath string
	flag.StringVar(&emailsPath, "emails", "", "File with one candidate email per line")
	flag.StringVar(&questionsPath, "questions", "", "JSON file with an array of questions")
	flag.Parse()

	if emailsPath == "" && questionsPath == "" {
		fmt.Println("Usage: seed -emails whitelist.txt -questions questions.json")
		flag.PrintDefaults()
		return
	}

	cfg := config.Load()
	log := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	candidateRepo := repository.NewCandidateRepository(pool)
	questionService := service.NewQuestionService(repository.NewQuestionRepository(pool))

	if emailsPath != "" {
		fmt.Println("=== Seeding Whitelist ===")
		f, err := os.Open(emailsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open email list")
		}
		defer f.Close()

		added, existing := 0, 0
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			email := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if email == "" || strings.HasPrefix(email, "#") {
				continue
			}
			_, created, err := candidateRepo.Create(ctx, email)
			if err != nil {
				fmt.Printf("Error whitelisting %s: %v\n", email, err)
				continue
			}
			if created {
				added++
			} else {
				existing++
			}
		}
		if err := scanner.Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to read email list")
		}
		fmt.Printf("Whitelist: %d added, %d already present.\n", added, existing)
	}

	if questionsPath != "" {
		fmt.Println("=== Seeding Questions ===")
		raw, err := os.ReadFile(questionsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read question file")
		}
		var reqs []model.AddQuestionRequest
		if err := json.Unmarshal(raw, &reqs); err != nil {
			log.Fatal().Err(err).Msg("Failed to parse question file")
		}

		successCount := 0
		for i, req := range reqs {
			if _, err := questionService.Add(ctx, req); err != nil {
				fmt.Printf("Error adding question #%d (%s): %v\n", i+1, req.ContentRef, err)
				continue
			}
			successCount++
		}
		fmt.Printf("Questions: added %d/%d.\n", successCount, len(reqs))
	}
}
