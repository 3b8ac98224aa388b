package config

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Database DatabaseConfig
	Provider ProviderConfig
	Match    MatchConfig
	Image    ImageConfig
	Log      LogConfig
	Web      WebConfig
	Models   ModelsConfig
}

type DatabaseConfig struct {
	Driver        string `validate:"oneof=mysql postgres"`
	URL           string `validate:"required"` // DSN, e.g. user:pass@tcp(db:3306)/hr?parseTime=true
	MaxOpenConns  int    `validate:"gte=1"`
	MaxIdleConns  int    `validate:"gte=0"`
	EmployeeTable string `validate:"omitempty,sqlident"` // empty disables the employee existence check
}

type ProviderConfig struct {
	URL           string `validate:"required,url"` // defaults to http://localhost:5005
	Model         string `validate:"required"`     // defaults to Facenet
	Detector      string `validate:"required"`     // defaults to mtcnn
	QuickDetector string // defaults to opencv, empty disables the quick pre-check
	AntiSpoofing  bool   // defaults to true
	Timeout       time.Duration
}

type MatchConfig struct {
	Threshold    float64 `validate:"gt=0,lte=2"`
	HistoryLimit int     `validate:"gte=1"`
}

type ImageConfig struct {
	MaxWidth  int `validate:"gte=1"`
	MaxHeight int `validate:"gte=1"`
}

type LogConfig struct {
	Level  string
	Format string `validate:"oneof=text json"`
}

type WebConfig struct {
	AllowedOrigins []string
	UploadMaxBytes int64
}

type ModelsConfig struct {
	Models map[string]ModelProfile `yaml:"models"`
}

type ModelProfile struct {
	Dim int `yaml:"dim"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean (1/0, true/false, yes/no).
func envBool(key string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultVal
	}
}

// envString returns the env var, or defaultVal if it is not set at all.
// An explicitly empty value is kept so features can be switched off.
func envString(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return defaultVal
}

// envList splits a comma-separated env var into trimmed, non-empty items.
func envList(key string) []string {
	var items []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:        strings.ToLower(envString("DATABASE_DRIVER", "mysql")),
			URL:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 5),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 2),
			EmployeeTable: envString("EMPLOYEE_TABLE", "employee"),
		},
		Provider: ProviderConfig{
			URL:           envString("FACE_PROVIDER_URL", "http://localhost:5005"),
			Model:         envString("FACE_MODEL", "Facenet"),
			Detector:      envString("FACE_DETECTOR", "mtcnn"),
			QuickDetector: envString("FACE_QUICK_DETECTOR", "opencv"),
			AntiSpoofing:  envBool("FACE_ANTI_SPOOFING", true),
			Timeout:       time.Duration(envInt("FACE_PROVIDER_TIMEOUT_SEC", 60)) * time.Second,
		},
		Match: MatchConfig{
			Threshold:    envFloat("MATCH_THRESHOLD", 0.25),
			HistoryLimit: envInt("MATCH_HISTORY_LIMIT", 20),
		},
		Image: ImageConfig{
			MaxWidth:  envInt("IMAGE_MAX_WIDTH", 640),
			MaxHeight: envInt("IMAGE_MAX_HEIGHT", 640),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: strings.ToLower(envString("LOG_FORMAT", "text")),
		},
		Web: WebConfig{
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
			UploadMaxBytes: int64(envInt("UPLOAD_MAX_MB", 10)) << 20,
		},
		Models: models,
	}
}

// EmbeddingDim returns the embedding dimensionality of the configured model.
// Returns 0 for models without a profile.
func (c *Config) EmbeddingDim() int {
	return c.Models.Models[c.Provider.Model].Dim
}

var sqlIdentRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return sqlIdentRegex.MatchString(fl.Field().String())
	})
	return v
}

// IsSQLIdentifier reports whether s is safe to interpolate as a table name.
func IsSQLIdentifier(s string) bool {
	return sqlIdentRegex.MatchString(s)
}

// Validate checks the settings needed by the register and match flows.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.EmbeddingDim() == 0 {
		return fmt.Errorf("invalid configuration: unknown face model %q", c.Provider.Model)
	}
	return nil
}
