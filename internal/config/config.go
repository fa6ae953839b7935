package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Backend   BackendConfig   `json:"backend"`
	Kroger    KrogerConfig    `json:"kroger"`
	Instacart InstacartConfig `json:"instacart"`
	AI        AIConfig        `json:"ai"`
	Clerk     ClerkConfig     `json:"clerk"`
}

// BackendConfig points at the menu service that generates meal plans and
// grocery lists.
type BackendConfig struct {
	BaseURL string `json:"base_url"`
}

type KrogerConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	BaseURL      string `json:"base_url"`
}

type InstacartConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

type AIConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

type ClerkConfig struct {
	SecretKey string `json:"secret_key"`
}

func Load() (*Config, error) {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	config := &Config{
		Backend: BackendConfig{
			BaseURL: getEnvOrDefault("BACKEND_URL", "http://localhost:8000"),
		},
		Kroger: KrogerConfig{
			ClientID:     os.Getenv("KROGER_CLIENT_ID"),
			ClientSecret: os.Getenv("KROGER_CLIENT_SECRET"),
			BaseURL:      os.Getenv("KROGER_URL"),
		},
		Instacart: InstacartConfig{
			BaseURL: getEnvOrDefault("INSTACART_URL", "https://connect.instacart.com"),
			APIKey:  os.Getenv("INSTACART_API_KEY"),
		},
		AI: AIConfig{
			APIKey: os.Getenv("AI_API_KEY"),
			Model:  getEnvOrDefault("AI_MODEL", "openai/gpt-5.2"),
		},
		Clerk: ClerkConfig{
			SecretKey: os.Getenv("CLERK_SECRET_KEY"),
		},
	}

	return config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
