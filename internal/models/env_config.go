package models

import (
	"os"
)

type EnvConfig struct {
	DatabaseURL string
	Port        string
	SessionKey  []byte
	Debug       bool
}

func ReadEnvConfig() EnvConfig {
	debug := os.Getenv("REVUE_DEBUG") == "true"
	port := os.Getenv("REVUE_PORT")
	if port == "" {
		port = "8080"
	}
	sessionKey := os.Getenv("REVUE_SESSION_KEY")
	return EnvConfig{
		DatabaseURL: os.Getenv("REVUE_DATABASE_URL"),
		Port:        port,
		SessionKey:  []byte(sessionKey),
		Debug:       debug,
	}
}
