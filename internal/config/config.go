// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the server reads from the environment, parsed
// once at startup. Dotenv files are loaded by the godotenv autoload import
// in the binaries before this runs.
type Config struct {
	Port      string // MEMORY_PORT, listen port for the HTTP/WS server
	PublicDir string // MEMORY_PUBLIC_DIR, static assets (board images, client)
	UploadDir string // MEMORY_UPLOAD_DIR, destination for custom image uploads

	StandardPoolSize int           // MEMORY_POOL_SIZE, numbered standard images available
	RevealDelay      time.Duration // MEMORY_REVEAL_DELAY_MS, mismatch display window
	MaxUploadFiles   int           // MEMORY_MAX_UPLOAD_FILES, files per upload request
	MaxUploadBytes   int64         // MEMORY_MAX_UPLOAD_MB, total multipart memory budget

	// EndOnDisconnect decides the open policy question: true tears the room
	// down when a player leaves a started game (opponent wins by forfeit),
	// false lets the room live on until the last player leaves.
	EndOnDisconnect bool // MEMORY_END_ON_DISCONNECT

	RedisAddr   string // REDIS_ADDR, enables the action historian queue when set
	PostgresSet bool   // true when PG_HOST is set, enables result recording
}

// Load reads the environment into a Config, applying defaults.
func Load() Config {
	return Config{
		Port:             getEnv("MEMORY_PORT", "3000"),
		PublicDir:        getEnv("MEMORY_PUBLIC_DIR", "public"),
		UploadDir:        getEnv("MEMORY_UPLOAD_DIR", "public/uploads"),
		StandardPoolSize: getEnvInt("MEMORY_POOL_SIZE", 45),
		RevealDelay:      time.Duration(getEnvInt("MEMORY_REVEAL_DELAY_MS", 2000)) * time.Millisecond,
		MaxUploadFiles:   getEnvInt("MEMORY_MAX_UPLOAD_FILES", 20),
		MaxUploadBytes:   int64(getEnvInt("MEMORY_MAX_UPLOAD_MB", 32)) << 20,
		EndOnDisconnect:  getEnvBool("MEMORY_END_ON_DISCONNECT", true),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		PostgresSet:      os.Getenv("PG_HOST") != "",
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}
