// Package main is the entry point for the authhub server: read env
// configuration, set up logging, and run. All logic lives in internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/authhub/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/authhub.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// AUTH_REQUIRED=false turns off the global auth requirement (open mode).
	authRequired := true
	if v := os.Getenv("AUTH_REQUIRED"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			logger.Error("invalid AUTH_REQUIRED value", slog.String("value", v))
			os.Exit(1)
		}
		authRequired = parsed
	}

	cfg := server.Config{
		Port:   port,
		DBPath: dbPath,

		// Generate with: openssl rand -hex 32
		JWTSecret: os.Getenv("JWT_SECRET"),

		ProviderURL:     os.Getenv("PROVIDER_URL"),
		ProviderAnonKey: os.Getenv("PROVIDER_ANON_KEY"),

		TrustedEmailHeader: os.Getenv("TRUSTED_EMAIL_HEADER"),
		TrustedNameHeader:  os.Getenv("TRUSTED_NAME_HEADER"),

		AuthRequired: authRequired,
		WebhookURL:   os.Getenv("WEBHOOK_URL"),
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
