package config

import (
	"log"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

type Config struct {
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	JWTSecret      string
	BotToken       string
	BotAPIKey      string
	ServerPort     string
	WebhookBaseURL string
	WebhookSecret  string
	OperatorID     int64
	OperatorChatID int64
	PolicyFile     string

	Policy Policy
}

// Policy holds the reputation rules that are tuned per deployment,
// loaded from a YAML file next to the binary.
type Policy struct {
	ThankPhrases    []string `yaml:"thank_phrases"`
	ReactionEmoji   string   `yaml:"reaction_emoji"`
	CooldownSeconds int      `yaml:"cooldown_seconds"`
	OwnerLabel      string   `yaml:"owner_label"`
	MaxGrant        int      `yaml:"max_grant"`
}

func defaultPolicy() Policy {
	return Policy{
		ThankPhrases: []string{
			"спасибо", "благодарю", "спс", "саул", "от души", "мерси",
			"спасибки", "thanks", "thank you", "thx", "благодарствуйте", "пасиб",
		},
		ReactionEmoji:   "👍",
		CooldownSeconds: 0,
		OwnerLabel:      "СМКЦ",
		MaxGrant:        1000,
	}
}

func Load() *Config {
	cfg := &Config{
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "reputation"),
		JWTSecret:      getEnv("JWT_SECRET", "super-secret-key-change-me"),
		BotToken:       getEnv("BOT_TOKEN", ""),
		BotAPIKey:      getEnv("BOT_API_KEY", "bot-api-key-change-me"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		WebhookBaseURL: getEnv("WEBHOOK_BASE_URL", ""),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
		OperatorID:     getEnvInt64("OPERATOR_ID", 0),
		OperatorChatID: getEnvInt64("OPERATOR_CHAT_ID", 0),
		PolicyFile:     getEnv("POLICY_FILE", "policy.yaml"),
	}

	cfg.Policy = loadPolicy(cfg.PolicyFile)

	// Env override so the cooldown can be flipped without editing the file.
	if v := os.Getenv("THANK_COOLDOWN_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Policy.CooldownSeconds = n
		}
	}

	return cfg
}

func loadPolicy(path string) Policy {
	policy := defaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("policy file %s not found, using defaults", path)
		return policy
	}

	if err := yaml.Unmarshal(data, &policy); err != nil {
		log.Printf("policy file %s is invalid (%v), using defaults", path, err)
		return defaultPolicy()
	}

	if len(policy.ThankPhrases) == 0 {
		policy.ThankPhrases = defaultPolicy().ThankPhrases
	}
	if policy.MaxGrant <= 0 {
		policy.MaxGrant = defaultPolicy().MaxGrant
	}

	return policy
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
