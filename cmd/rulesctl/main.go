package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/vietddude/streamwatch/internal/infra/api"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	tokenURL := os.Getenv("STREAM_TOKEN_URL")
	rulesURL := os.Getenv("STREAM_RULES_URL")
	key := os.Getenv("STREAM_KEY")
	secret := os.Getenv("STREAM_SECRET")
	if tokenURL == "" || rulesURL == "" {
		log.Fatalf("STREAM_TOKEN_URL and STREAM_RULES_URL must be set")
	}
	if key == "" || secret == "" {
		log.Fatalf("STREAM_KEY and STREAM_SECRET must be set")
	}

	clearAll := flag.Bool("clear", false, "Delete all installed rules")
	add := flag.String("add", "", "Rule value to install")
	tag := flag.String("tag", "", "Tag for the installed rule")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := api.NewAuthClient(tokenURL, key, secret).Token(ctx)
	if err != nil {
		log.Fatalf("Token exchange failed: %v", err)
	}

	rules := api.NewRulesClient(rulesURL, token)

	ids, err := rules.List(ctx)
	if err != nil {
		log.Fatalf("List failed: %v", err)
	}
	fmt.Printf("Installed rules: %d\n", len(ids))
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}

	if *clearAll {
		deleted, err := rules.Delete(ctx, ids)
		if err != nil {
			log.Fatalf("Delete failed: %v", err)
		}
		fmt.Printf("Deleted %d rules\n", deleted)
	}

	if *add != "" {
		created, err := rules.Add(ctx, []api.Rule{{Value: *add, Tag: *tag}})
		if err != nil {
			log.Fatalf("Add failed: %v", err)
		}
		fmt.Printf("Created %d rules\n", created)
	}
}
