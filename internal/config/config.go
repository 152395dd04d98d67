// internal/config/config.go
package config

import (
    "log"

    "github.com/caarlos0/env/v11"
    "github.com/joho/godotenv"
)

// Config holds everything the binaries read from the environment. A .env
// file, when present, is loaded first; OS variables win.
type Config struct {
    HTTPAddr             string `env:"HTTP_ADDR" envDefault:":8080"`
    DatabaseURL          string `env:"DATABASE_URL,notEmpty"`
    RunMigrations        bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
    AMQPURL              string `env:"AMQP_URL"`
    RetryIntervalMinutes int    `env:"RETRY_INTERVAL_MINUTES" envDefault:"5"`
    EncryptionKey        string `env:"ENCRYPTION_KEY,notEmpty"`
}

func Load() Config {
    if err := godotenv.Load(); err != nil {
        log.Println("⚠️ No .env file found, relying on OS environment variables")
    }

    var c Config
    if err := env.Parse(&c); err != nil {
        log.Fatal(err)
    }
    return c
}
