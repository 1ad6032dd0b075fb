package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/starford/notes/internal/api"
	"github.com/starford/notes/internal/store"
)

// Defaults used when neither the config file nor the environment set a value.
const (
	DefaultPort     = 3001
	DefaultMongoURI = "mongodb://localhost:27017/notes-app"
	defaultDatabase = "notes-app"
)

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Store StoreConfig       `yaml:"store"`
	Docs  DocsConfig        `yaml:"docs"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Docs.Validate()
}

// ApplyEnv overrides config values from PORT and MONGODB_URI.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.App.HTTP.Port = port
	}
	if v, ok := os.LookupEnv("MONGODB_URI"); ok && v != "" {
		c.Store.Mongo.URI = v
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Required),
	)
}

// StoreConfig selects the document store driver.
type StoreConfig struct {
	Driver string       `yaml:"driver"`
	Mongo  MongoConfig  `yaml:"mongo"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(store.DriverMongo, store.DriverSQLite)),
	); err != nil {
		return err
	}
	switch c.Driver {
	case store.DriverMongo:
		return c.Mongo.Validate()
	default:
		return c.SQLite.Validate()
	}
}

// Options converts the config into store.Options.
func (c *StoreConfig) Options() store.Options {
	return store.Options{
		Driver:                 c.Driver,
		MongoURI:               c.Mongo.URI,
		MongoDatabase:          c.Mongo.Database(),
		MongoCollection:        c.Mongo.Collection,
		ServerSelectionTimeout: c.Mongo.ServerSelectionTimeout,
		SQLitePath:             c.SQLite.Path,
	}
}

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI                    string        `yaml:"uri"`
	Collection             string        `yaml:"collection"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout"`
}

// Database returns the database named in the URI path, or "notes-app".
func (c *MongoConfig) Database() string {
	cs, err := connstring.ParseAndValidate(c.URI)
	if err != nil || cs.Database == "" {
		return defaultDatabase
	}
	return cs.Database
}

// Validate validates the MongoDB configuration.
func (c *MongoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URI, validation.Required, validation.By(validMongoURI)),
		validation.Field(&c.Collection, validation.Required),
		validation.Field(&c.ServerSelectionTimeout, validation.Required),
	)
}

func validMongoURI(value any) error {
	uri, _ := value.(string)
	if _, err := connstring.ParseAndValidate(uri); err != nil {
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// DocsConfig controls the API documentation endpoint.
type DocsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the docs configuration.
func (c *DocsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// MountPath returns the docs path, or "" when docs are disabled.
func (c *DocsConfig) MountPath() string {
	if !c.Enabled {
		return ""
	}
	return c.Path
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:            DefaultPort,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		Store: StoreConfig{
			Driver: store.DriverMongo,
			Mongo: MongoConfig{
				URI:                    DefaultMongoURI,
				Collection:             "notes",
				ServerSelectionTimeout: 5 * time.Second,
			},
			SQLite: SQLiteConfig{
				Path: "./notes.db",
			},
		},
		Docs: DocsConfig{
			Enabled: true,
			Path:    api.DefaultDocsPath,
		},
	}
}
