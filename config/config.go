package config

import (
	"os"
	"strings"
)

// DefaultPrompt asks for a short title and caption for one photo.
const DefaultPrompt = "This is a photo for a birthday presentation. Generate a funny, witty, or heartwarming title (max 5 words) and a short description (max 15 words) for this photo. Return JSON."

// AppConfig collects everything the server reads from the environment.
type AppConfig struct {
	StorageType      string
	LocalStoragePath string
	DataSourceName   string
	SQLiteDriver     string
	S3BucketName     string
	S3Prefix         string
	LegacyKey        string

	JWTSecret      string
	AdminPasscodes []string

	GeneratorProvider string
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	GenerationPrompt  string
}

// Load reads the configuration from environment variables, falling back to defaults.
func Load() AppConfig {
	geminiKey := getenv("GEMINI_API_KEY", "")
	if geminiKey == "" {
		geminiKey = getenv("API_KEY", "")
	}

	return AppConfig{
		StorageType:      strings.ToLower(getenv("STORAGE_TYPE", "memory")),
		LocalStoragePath: getenv("LOCAL_STORAGE_PATH", "./data"),
		DataSourceName:   getenv("DATA_SOURCE_NAME", "slideshow.db"),
		SQLiteDriver:     getenv("SQLITE_DRIVER", "sqlite"),
		S3BucketName:     getenv("S3_BUCKET_NAME", ""),
		S3Prefix:         getenv("S3_PREFIX", ""),
		LegacyKey:        getenv("LEGACY_KEY", "daniel_bday_slides"),

		JWTSecret:      getenv("JWT_SECRET", ""),
		AdminPasscodes: splitList(getenv("ADMIN_PASSCODES", "24,admin")),

		GeneratorProvider: strings.ToLower(getenv("GENERATOR_PROVIDER", "gemini")),
		GeminiAPIKey:      geminiKey,
		GeminiModel:       getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:      getenv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     strings.TrimRight(getenv("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		OpenAIModel:       getenv("OPENAI_MODEL", "gpt-4o-mini"),
		GenerationPrompt:  getenv("GENERATION_PROMPT", DefaultPrompt),
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
