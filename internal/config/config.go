package config

import (
	"fmt"
	"strings"
	"time"

	"dondog-go/pkg/logger"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDriverPostgres  = "postgres"
	StoreDriverMongo     = "mongo"
	StoreDriverFirestore = "firestore"
	StoreDriverMemory    = "memory"

	BlobDriverGCS      = "gcs"
	BlobDriverS3       = "s3"
	BlobDriverSupabase = "supabase"
	BlobDriverMemory   = "memory"
)

type Config struct {
	HTTPPort    string        `envconfig:"HTTP_PORT" default:"8080"`
	Env         string        `envconfig:"ENV" default:"development"`
	CORSOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	Timeout     time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"30s"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`

	DB        DBConfig        `envconfig:"DB"`
	Mongo     MongoConfig     `envconfig:"MONGO"`
	Firestore FirestoreConfig `envconfig:"FIRESTORE"`
	Blob      BlobConfig      `envconfig:"BLOB"`
	Supabase  SupabaseConfig  `envconfig:"SUPABASE"`
	Pairing   PairingConfig   `envconfig:"PAIRING"`
	Account   AccountConfig   `envconfig:"ACCOUNT"`
	Posts     PostsConfig     `envconfig:"POSTS"`
	Events    EventsConfig    `envconfig:"EVENTS"`
	Metrics   MetricsConfig   `envconfig:"METRICS"`
}

// DB fields rely on split_words instead of explicit names so that generic
// variables like USER or PORT are never picked up as fallbacks.
type DBConfig struct {
	DSN             string        `split_words:"true"`
	Host            string        `split_words:"true" default:"localhost"`
	Port            string        `split_words:"true" default:"5432"`
	User            string        `split_words:"true" default:"postgres"`
	Password        string        `split_words:"true" default:"postgres"`
	Name            string        `split_words:"true" default:"dondog"`
	SSLMode         string        `envconfig:"SSLMODE" default:"disable"`
	TimeZone        string        `envconfig:"TIMEZONE" default:"UTC"`
	MaxOpenConns    int           `split_words:"true" default:"10"`
	MaxIdleConns    int           `split_words:"true" default:"5"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"30m"`
}

type MongoConfig struct {
	URI            string        `envconfig:"URI" default:"mongodb://localhost:27017"`
	Database       string        `envconfig:"DATABASE" default:"dondog"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
}

type FirestoreConfig struct {
	ProjectID       string `envconfig:"PROJECT_ID"`
	CredentialsFile string `envconfig:"CREDENTIALS_FILE"`
}

type BlobConfig struct {
	Driver string `envconfig:"DRIVER" default:"memory"`
	// PublicURL is the prefix every stored object URL starts with. Strings in
	// post documents carrying this prefix are treated as deletable media.
	PublicURL       string `envconfig:"PUBLIC_URL"`
	Bucket          string `envconfig:"BUCKET"`
	Region          string `envconfig:"REGION"`
	Endpoint        string `envconfig:"ENDPOINT"`
	AccessKeyID     string `envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"SECRET_ACCESS_KEY"`
	CredentialsFile string `envconfig:"CREDENTIALS_FILE"`
}

type SupabaseConfig struct {
	URL            string        `envconfig:"URL"`
	PublishableKey string        `envconfig:"PUBLISHABLE_KEY"`
	ServiceRoleKey string        `envconfig:"SERVICE_ROLE_KEY"`
	JWTSecret      string        `envconfig:"JWT_SECRET"`
	AuthTimeout    time.Duration `envconfig:"AUTH_TIMEOUT" default:"5s"`
	SkipAuth       bool          `envconfig:"AUTH_SKIP"`
	MockUserID     string        `envconfig:"AUTH_MOCK_USER_ID" default:"00000000-0000-0000-0000-000000000001"`
	MockUserEmail  string        `envconfig:"AUTH_MOCK_USER_EMAIL"`
}

type PairingConfig struct {
	InviteTTL      time.Duration `envconfig:"INVITE_TTL" default:"24h"`
	CodeAttempts   int           `envconfig:"CODE_ATTEMPTS" default:"10"`
	RoomIDAttempts int           `envconfig:"ROOM_ID_ATTEMPTS" default:"5"`
}

type AccountConfig struct {
	ReauthMaxAge           time.Duration `envconfig:"REAUTH_MAX_AGE" default:"5m"`
	MediaDeleteConcurrency int           `envconfig:"MEDIA_DELETE_CONCURRENCY" default:"8"`
	DeletionLockTTL        time.Duration `envconfig:"DELETION_LOCK_TTL" default:"10m"`
}

type PostsConfig struct {
	MaxImageBytes int64 `envconfig:"MAX_IMAGE_BYTES" default:"10485760"`
	FeedPageSize  int   `envconfig:"FEED_PAGE_SIZE" default:"20"`
}

type EventsConfig struct {
	AMQPURL  string `envconfig:"AMQP_URL"`
	Exchange string `envconfig:"EXCHANGE" default:"dondog.events"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"ENABLED" default:"true"`
	Prefix  string `envconfig:"PREFIX" default:"dondog"`
}

func Load(log logger.Logger) (Config, error) {
	if err := loadDotEnv(log); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMongo, StoreDriverMemory:
	case StoreDriverFirestore:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	switch c.Blob.Driver {
	case BlobDriverMemory:
	case BlobDriverGCS, BlobDriverS3:
		if c.Blob.Bucket == "" {
			return fmt.Errorf("BLOB_BUCKET is required for blob driver %q", c.Blob.Driver)
		}
	case BlobDriverSupabase:
		if c.Blob.Bucket == "" || c.Supabase.URL == "" {
			return fmt.Errorf("BLOB_BUCKET and SUPABASE_URL are required for blob driver %q", c.Blob.Driver)
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}

	if c.Pairing.CodeAttempts <= 0 || c.Pairing.RoomIDAttempts <= 0 {
		return fmt.Errorf("pairing attempts must be positive")
	}
	return nil
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

func (c DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.TimeZone
}
