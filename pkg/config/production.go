package config

import (
	"os"
	"strconv"
)

func loadProductionConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.DatabaseFilePath = os.Getenv("DATABASE_FILE_PATH")
	if cfg.DatabaseFilePath == "" {
		cfg.DatabaseFilePath = "/data/bookstore.sqlite"
	}
}
