package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr            string
	DatabaseURL           string
	RedisAddr             string
	JWTSecret             string
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int
	BcryptCost            int
}

func Load() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("No .env file found, falling back to OS environment")
	}

	cfg := &Config{
		ListenAddr:            getString("LISTEN_ADDR"),
		DatabaseURL:           getString("DATABASE_URL"),
		RedisAddr:             getString("REDIS_ADDR"),
		JWTSecret:             getString("JWT_SECRET"),
		AccessTokenTTLMinutes: getInt("ACCESS_TOKEN_MINUTES_TTL"),
		RefreshTokenTTLDays:   getInt("REFRESH_TOKEN_DAYS_TTL"),
		BcryptCost:            getInt("BCRYPT_COST"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}

func getString(key string) (value string) {
	value = os.Getenv(key)
	if value == "" {
		fmt.Printf("missing required environment variable: %s\n", key)
	}
	return value
}

func getInt(key string) (value int) {
	valueStr := getString(key)
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		fmt.Printf("Invalid int for %s: %s\n", key, valueStr)
	}
	return value
}
