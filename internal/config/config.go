// Package config holds the settings every kids-events component receives.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional YAML file, and KIDS_EVENTS_* environment variables (a .env file in
// the working directory is loaded into the environment first). With no file
// and no environment the defaults reproduce the Sendai city feed build.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSourceURL = "https://data.city.sendai.jp/datastore/dump/2314f2dc-da9e-4800-aae9-355a67649968?bom=True"
	DefaultUserAgent = "Mozilla/5.0"
	DefaultTimeout   = 30 * time.Second

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	envPrefix = "KIDS_EVENTS_"
)

type Source struct {
	URL       string        `yaml:"url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	Tag       string        `yaml:"tag"`  // stored in events.source
	Area      string        `yaml:"area"` // stored in events.area
}

// Schema lists, per normalized field, the CSV column names to probe in order.
type Schema struct {
	Title   []string `yaml:"title"`
	Summary []string `yaml:"summary"`
	Start   []string `yaml:"start"`
	Venue   []string `yaml:"venue"`
	URL     []string `yaml:"url"`
	ID      []string `yaml:"id"`
}

type Classify struct {
	FreeKeyword   string   `yaml:"free_keyword"`
	ChildKeywords []string `yaml:"child_keywords"`
	BaseScore     int      `yaml:"base_score"`
	ChildScore    int      `yaml:"child_score"`
}

type Store struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	DSN    string `yaml:"dsn"`    // file path for sqlite, connection string for postgres
}

type Site struct {
	OutputDir    string `yaml:"output_dir"`
	Title        string `yaml:"title"`
	PastLimit    int    `yaml:"past_limit"`
	SummaryLimit int    `yaml:"summary_limit"`
	Timezone     string `yaml:"timezone"`
	Calendar     bool   `yaml:"calendar"` // also write events.ics
}

type Metrics struct {
	Textfile string `yaml:"textfile"` // node_exporter textfile path, empty disables
}

type Log struct {
	Level string `yaml:"level"`
}

type Config struct {
	Source   Source   `yaml:"source"`
	Schema   Schema   `yaml:"schema"`
	Classify Classify `yaml:"classify"`
	Store    Store    `yaml:"store"`
	Site     Site     `yaml:"site"`
	Metrics  Metrics  `yaml:"metrics"`
	Log      Log      `yaml:"log"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() *Config {
	return &Config{
		Source: Source{
			URL:       DefaultSourceURL,
			UserAgent: DefaultUserAgent,
			Timeout:   DefaultTimeout,
			Tag:       "sendai_csv",
			Area:      "仙台市",
		},
		Schema: Schema{
			Title:   []string{"name"},
			Summary: []string{"summary"},
			Start:   []string{"startDate"},
			Venue:   []string{"locationName"},
			URL:     []string{"detailedUrl", "url", "URL", "detailUrl", "homepage"},
			ID:      []string{"entity_id", "_id"},
		},
		Classify: Classify{
			FreeKeyword:   "無料",
			ChildKeywords: []string{"小学生", "親子", "子ども", "体験", "工作"},
			BaseScore:     60,
			ChildScore:    80,
		},
		Store: Store{
			Driver: DriverSQLite,
			DSN:    "data/data.db",
		},
		Site: Site{
			OutputDir:    "site",
			Title:        "宮城の子どもイベント（最新）",
			PastLimit:    20,
			SummaryLimit: 140,
			Timezone:     "Asia/Tokyo",
		},
		Log: Log{Level: "info"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty or the file does not exist) and the environment.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse yaml: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// A missing .env is the normal case.
	_ = godotenv.Load()

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Source.URL, "SOURCE_URL")
	setString(&c.Source.UserAgent, "USER_AGENT")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.DSN, "STORE_DSN")
	setString(&c.Site.OutputDir, "OUTPUT_DIR")
	setString(&c.Site.Timezone, "TIMEZONE")
	setString(&c.Metrics.Textfile, "METRICS_TEXTFILE")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv(envPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", envPrefix, err)
		}
		c.Source.Timeout = d
	}
	if v := os.Getenv(envPrefix + "PAST_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPAST_LIMIT: %w", envPrefix, err)
		}
		c.Site.PastLimit = n
	}
	if v := os.Getenv(envPrefix + "CALENDAR"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sCALENDAR: %w", envPrefix, err)
		}
		c.Site.Calendar = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

// Validate reports settings no component can work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.URL) == "" {
		return errors.New("source.url is required")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive, got %s", c.Source.Timeout)
	}
	if len(c.Schema.Title) == 0 {
		return errors.New("schema.title needs at least one column name")
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported store driver: %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return errors.New("store.dsn is required")
	}
	if c.Site.OutputDir == "" {
		return errors.New("site.output_dir is required")
	}
	if c.Site.PastLimit < 0 {
		return fmt.Errorf("site.past_limit must not be negative, got %d", c.Site.PastLimit)
	}
	if c.Site.SummaryLimit <= 0 {
		return fmt.Errorf("site.summary_limit must be positive, got %d", c.Site.SummaryLimit)
	}
	if c.Site.Timezone != "" {
		if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
			return fmt.Errorf("site.timezone: %w", err)
		}
	}
	return nil
}

// Location resolves Site.Timezone. Validate rejects unknown zones, so the
// fallback to the local zone only applies to an unvalidated Config.
func (c *Config) Location() *time.Location {
	if c.Site.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
