package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port           string
	PostgresDSN    string
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	RedisPassword  string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	CanonicalBase string
	CDNBase       string
	CDNHTMLBase   string
	ImagePrefix   string
	AudioPrefix   string
	HTMLPrefix    string

	OpenAIKey        string
	OpenAIModel      string
	OpenAIImageModel string
	GeminiKey        string
	GeminiImageModel string
	AIImageBackend   string
	PexelsKey        string

	AzureSpeechKey    string
	AzureSpeechRegion string
	AzureVoice        string
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	GCSEnabled       bool
	AllowLocalFiles  bool
	TemplateManifest string
	TemplateDir      string

	Parallelism       int
	HTTPTimeout       time.Duration
	PipelineTimeout   time.Duration
	SideEffectTimeout time.Duration
	ImageCacheTTL     time.Duration
}

func Load() *Config {
	return &Config{
		Port:           getenv("PORT", "8080"),
		PostgresDSN:    getenv("POSTGRES_DSN", ""),
		MongoURI:       getenv("MONGO_URI", ""),
		MongoDB:        getenv("MONGO_DB", "storygen"),
		RedisAddr:      getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "suvichaarapp"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),

		CanonicalBase: strings.TrimRight(getenv("CANONICAL_BASE", "https://suvichaar.org"), "/"),
		CDNBase:       strings.TrimRight(getenv("CDN_BASE", "https://media.suvichaar.org"), "/"),
		CDNHTMLBase:   strings.TrimRight(getenv("CDN_HTML_BASE", "https://stories.suvichaar.org"), "/"),
		ImagePrefix:   getenv("IMAGE_PREFIX", "media/images/"),
		AudioPrefix:   strings.TrimRight(getenv("AUDIO_PREFIX", "media/audio"), "/"),
		HTMLPrefix:    strings.TrimRight(getenv("HTML_PREFIX", "webstories"), "/"),

		OpenAIKey:        getenv("OPENAI_API_KEY", ""),
		OpenAIModel:      getenv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIImageModel: getenv("OPENAI_IMAGE_MODEL", "dall-e-3"),
		GeminiKey:        getenv("GEMINI_API_KEY", ""),
		GeminiImageModel: getenv("GEMINI_IMAGE_MODEL", "gemini-2.0-flash-preview-image-generation"),
		AIImageBackend:   strings.ToLower(getenv("AI_IMAGE_BACKEND", "openai")),
		PexelsKey:        getenv("PEXELS_API_KEY", ""),

		AzureSpeechKey:    getenv("AZURE_SPEECH_KEY", ""),
		AzureSpeechRegion: getenv("AZURE_SPEECH_REGION", "eastus"),
		AzureVoice:        getenv("AZURE_VOICE", "hi-IN-AaravNeural"),
		ElevenLabsKey:     getenv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: getenv("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),

		GCSEnabled:       getenvBool("GCS_ENABLED", false),
		AllowLocalFiles:  getenvBool("ALLOW_LOCAL_FILES", false),
		TemplateManifest: getenv("TEMPLATE_MANIFEST", ""),
		TemplateDir:      getenv("TEMPLATE_DIR", ""),

		Parallelism:       getenvInt("PARALLELISM", 4),
		HTTPTimeout:       getenvDuration("HTTP_TIMEOUT", 60*time.Second),
		PipelineTimeout:   getenvDuration("PIPELINE_TIMEOUT", 4*time.Minute),
		SideEffectTimeout: getenvDuration("SIDE_EFFECT_TIMEOUT", 30*time.Second),
		ImageCacheTTL:     getenvDuration("IMAGE_CACHE_TTL", 24*time.Hour),
	}
}

// IsPlaceholder reports whether a secret is unset or still a template value.
func IsPlaceholder(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return true
	}
	for _, marker := range []string{"replace-with", "your-", "example", "stub", "dummy"} {
		if strings.Contains(v, marker) {
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
