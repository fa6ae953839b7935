package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"larder/internal/cache"
	"larder/internal/config"
	"larder/internal/grocery"
	"larder/internal/menus"
)

func main() {
	var menuID string
	var payloadFile string
	var serve bool
	var addr string
	var help bool

	flag.StringVar(&menuID, "menu", "", "Menu id to build a shopping list for")
	flag.StringVar(&menuID, "m", "", "Menu id to build a shopping list for (short form)")
	flag.StringVar(&payloadFile, "file", "", "Build a shopping list from a local payload file instead of the backend")
	flag.BoolVar(&serve, "serve", false, "Run HTTP server mode")
	flag.StringVar(&addr, "addr", ":8080", "Address to bind in server mode")
	flag.BoolVar(&help, "help", false, "Show help message")
	flag.BoolVar(&help, "h", false, "Show help message")
	flag.Parse()

	if help {
		showHelp()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if serve {
		if err := runServer(cfg, addr); err != nil {
			log.Fatalf("server error: %v", err)
		}
		return
	}

	if payloadFile != "" {
		if err := runFromFile(payloadFile); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	if menuID == "" {
		fmt.Println("Error: a menu id is required (or use -serve for web mode)")
		showHelp()
		os.Exit(1)
	}

	if err := run(cfg, menuID); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// staticCredentials is the CLI path: one token from the environment, no
// refresh.
type staticCredentials struct {
	token string
}

func (s *staticCredentials) Token(context.Context) (string, error) {
	return s.token, nil
}

func (s *staticCredentials) Refresh(context.Context) (string, error) {
	return "", fmt.Errorf("set BACKEND_TOKEN to a fresh token")
}

func run(cfg *config.Config, menuID string) error {
	fetcher := menus.NewFetcher(cfg.Backend,
		&staticCredentials{token: os.Getenv("BACKEND_TOKEN")},
		cache.NewFileCache("cache"))

	payload, err := fetcher.FetchGroceryPayload(context.TODO(), menuID)
	if err != nil {
		return fmt.Errorf("failed to fetch grocery payload: %w", err)
	}

	return printList(grocery.Build(payload))
}

func runFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read payload file: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to parse payload file: %w", err)
	}

	return printList(grocery.Build(payload))
}

func printList(list grocery.List) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(list)
}

func showHelp() {
	fmt.Println("Larder - Shopping List Builder")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  larder -menu <id>")
	fmt.Println("  larder -file <payload.json>")
	fmt.Println("  larder -serve [-addr :8080]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -menu, -m       Menu id to build a shopping list for")
	fmt.Println("  -file           Build from a local payload file")
	fmt.Println("  -serve          Run HTTP server mode")
	fmt.Println("  -addr           Address to bind in server mode")
	fmt.Println("  -help, -h       Show this help message")
}
