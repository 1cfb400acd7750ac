package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config is the full service configuration, built from the environment.
type Config struct {
	Server        Server
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Workflow      WorkflowConfig
	Collaborators CollaboratorConfig
	Catalog       CatalogConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	LogLevel        slog.Level
	LogFormat       string
	ShutdownTimeout time.Duration
	// Location is the time zone whose civil date is "today" for deadline arithmetic.
	Location string
}

// PostgresConfig enables the durable stores when DSN is set.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

// RedisConfig enables the redis session store when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables outbox relay to Kafka when Brokers is set.
type KafkaConfig struct {
	Brokers       []string
	AuditTopic    string
	RelayInterval time.Duration
}

// WorkflowConfig holds the conversational timing and retention knobs.
type WorkflowConfig struct {
	SilenceWindow        time.Duration
	MaxPromptRepeats     int
	LiveWindow           time.Duration
	RetentionWindow      time.Duration
	DeletionSLA          time.Duration
	PurgeInterval        time.Duration
	ReevaluationInterval time.Duration
	MaxInputRetries      int
	MaxConflictRetries   int
	SweepParallelism     int
}

// CollaboratorConfig bounds calls to external collaborators. A collaborator
// whose URL is empty stays unconfigured and its flows fall back to manual
// entry.
type CollaboratorConfig struct {
	RetrievalURL                  string
	ExtractionURL                 string
	SpeechURL                     string
	GenerationURL                 string
	Timeout                       time.Duration
	MaxRetries                    int
	BaseBackoff                   time.Duration
	ExtractionConfidenceThreshold float64
	TranscriptConfidenceThreshold float64
}

// CatalogConfig points at YAML catalog files loaded at startup.
type CatalogConfig struct {
	CalendarDir  string
	TimelineFile string
	SchemeFile   string
	Watch        bool
}

// AuthConfig configures bearer-token owner authentication and the admin path.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminToken    string
}

// RateLimitConfig caps requests per owner, or per client address for
// unauthenticated calls. A zero budget leaves that class unlimited.
type RateLimitConfig struct {
	Enabled               bool
	Window                time.Duration
	ConversationPerWindow int
	VoicePerWindow        int
	AdminPerWindow        int
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            getString("SAHAYAK_ADDR", ":8080"),
			LogLevel:        getLogLevel("LOG_LEVEL", slog.LevelInfo),
			LogFormat:       getString("LOG_FORMAT", LogFormatJSON),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			Location:        getString("SAHAYAK_TIMEZONE", "Asia/Kolkata"),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			MigrateOnStart:  getBool("DATABASE_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       getList("KAFKA_BROKERS"),
			AuditTopic:    getString("KAFKA_AUDIT_TOPIC", "sahayak.audit"),
			RelayInterval: getDuration("KAFKA_RELAY_INTERVAL", time.Second),
		},
		Workflow: WorkflowConfig{
			SilenceWindow:        getDuration("WORKFLOW_SILENCE_WINDOW", 10*time.Second),
			MaxPromptRepeats:     getInt("WORKFLOW_MAX_PROMPT_REPEATS", 3),
			LiveWindow:           getDuration("WORKFLOW_LIVE_WINDOW", time.Hour),
			RetentionWindow:      getDuration("WORKFLOW_RETENTION", 90*24*time.Hour),
			DeletionSLA:          getDuration("WORKFLOW_DELETION_SLA", 24*time.Hour),
			PurgeInterval:        getDuration("WORKFLOW_PURGE_INTERVAL", time.Hour),
			ReevaluationInterval: getDuration("TRACKING_REEVALUATION_INTERVAL", time.Hour),
			MaxInputRetries:      getInt("WORKFLOW_MAX_INPUT_RETRIES", 3),
			MaxConflictRetries:   getInt("WORKFLOW_MAX_CONFLICT_RETRIES", 3),
			SweepParallelism:     getInt("TRACKING_SWEEP_PARALLELISM", 8),
		},
		Collaborators: CollaboratorConfig{
			RetrievalURL:                  os.Getenv("RETRIEVAL_URL"),
			ExtractionURL:                 os.Getenv("EXTRACTION_URL"),
			SpeechURL:                     os.Getenv("SPEECH_URL"),
			GenerationURL:                 os.Getenv("GENERATION_URL"),
			Timeout:                       getDuration("COLLABORATOR_TIMEOUT", 8*time.Second),
			MaxRetries:                    getInt("COLLABORATOR_MAX_RETRIES", 3),
			BaseBackoff:                   getDuration("COLLABORATOR_BASE_BACKOFF", 200*time.Millisecond),
			ExtractionConfidenceThreshold: getFloat("EXTRACTION_CONFIDENCE_THRESHOLD", 0.75),
			TranscriptConfidenceThreshold: getFloat("TRANSCRIPT_CONFIDENCE_THRESHOLD", 0.6),
		},
		Catalog: CatalogConfig{
			CalendarDir:  getString("CATALOG_CALENDAR_DIR", "./catalog/calendars"),
			TimelineFile: getString("CATALOG_TIMELINE_FILE", "./catalog/timelines.yaml"),
			SchemeFile:   getString("CATALOG_SCHEME_FILE", "./catalog/schemes.yaml"),
			Watch:        getBool("CATALOG_WATCH", false),
		},
		Auth: AuthConfig{
			// Use a default for development - should be overridden in production
			JWTSigningKey: getString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     getString("JWT_ISSUER", "sahayak"),
			JWTAudience:   getString("JWT_AUDIENCE", "sahayak-api"),
			AdminToken:    os.Getenv("ADMIN_TOKEN"),
		},
		RateLimit: RateLimitConfig{
			Enabled:               getBool("RATELIMIT_ENABLED", true),
			Window:                getDuration("RATELIMIT_WINDOW", time.Minute),
			ConversationPerWindow: getInt("RATELIMIT_CONVERSATION", 60),
			VoicePerWindow:        getInt("RATELIMIT_VOICE", 12),
			AdminPerWindow:        getInt("RATELIMIT_ADMIN", 30),
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	if err := c.Workflow.Validate(); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.Collaborators.Validate(); err != nil {
		return fmt.Errorf("collaborators: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

func (c *Server) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.LogFormat, validation.Required, validation.In(LogFormatJSON, LogFormatText)),
		validation.Field(&c.ShutdownTimeout, validation.Required),
		validation.Field(&c.Location, validation.Required, validation.By(validLocation)),
	)
}

func (c *KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.AuditTopic, validation.Required),
		validation.Field(&c.RelayInterval, validation.Required),
	)
}

func (c *WorkflowConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SilenceWindow, validation.Required),
		validation.Field(&c.MaxPromptRepeats, validation.Required, validation.Min(1)),
		validation.Field(&c.LiveWindow, validation.Required, validation.Min(c.SilenceWindow)),
		validation.Field(&c.RetentionWindow, validation.Required),
		validation.Field(&c.DeletionSLA, validation.Required, validation.Max(24*time.Hour)),
		validation.Field(&c.PurgeInterval, validation.Required),
		validation.Field(&c.ReevaluationInterval, validation.Required),
		validation.Field(&c.MaxInputRetries, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxConflictRetries, validation.Required, validation.Min(1)),
		validation.Field(&c.SweepParallelism, validation.Required, validation.Min(1)),
	)
}

func (c *CollaboratorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required),
		validation.Field(&c.MaxRetries, validation.Min(0)),
		validation.Field(&c.BaseBackoff, validation.Required),
		validation.Field(&c.ExtractionConfidenceThreshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.TranscriptConfidenceThreshold, validation.Min(0.0), validation.Max(1.0)),
	)
}

func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.JWTSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.JWTIssuer, validation.Required),
		validation.Field(&c.JWTAudience, validation.Required),
	)
}

func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Window, validation.Required),
		validation.Field(&c.ConversationPerWindow, validation.Min(0)),
		validation.Field(&c.VoicePerWindow, validation.Min(0)),
		validation.Field(&c.AdminPerWindow, validation.Min(0)),
	)
}

// TimeLocation resolves Server.Location. Validate guarantees it loads.
func (c *Server) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validLocation(value any) error {
	name, _ := value.(string)
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("unknown time zone %q", name)
	}
	return nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getLogLevel(key string, fallback slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv(key))); err != nil {
		return fallback
	}
	return level
}
