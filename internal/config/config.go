package config

import (
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	EnvPrefix         = "CAFEHOP_"
	defaultConfigFile = "config.yaml"
)

type Config struct {
	Log     Log     `koanf:"log"`
	Storage Storage `koanf:"storage"`
	Catalog Catalog `koanf:"catalog"`
	Planner Planner `koanf:"planner"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// Storage selects the KV backend holding the current plan and archive.
type Storage struct {
	Driver      string `koanf:"driver"` // memory, sqlite, postgres or redis
	SqlitePath  string `koanf:"sqlitePath"`
	DatabaseURL string `koanf:"databaseURL"`
	RedisAddr   string `koanf:"redisAddr"`
	RedisDB     int    `koanf:"redisDB"`
	KeyPrefix   string `koanf:"keyPrefix"`
}

type Catalog struct {
	SeedPath string `koanf:"seedPath"`
}

type Planner struct {
	WalkingOnly bool    `koanf:"walkingOnly"`
	DefaultLat  float64 `koanf:"defaultLat"`
	DefaultLng  float64 `koanf:"defaultLng"`
}

var drivers = []string{"memory", "sqlite", "postgres", "redis"}

func defaults() map[string]any {
	return map[string]any{
		"log.level":           "info",
		"log.format":          "text",
		"log.file":            "",
		"storage.driver":      "sqlite",
		"storage.sqlitePath":  "data/cafehop.db",
		"storage.databaseURL": "",
		"storage.redisAddr":   "localhost:6379",
		"storage.redisDB":     0,
		"storage.keyPrefix":   "",
		"catalog.seedPath":    "data/seeds/cafes.json",
		"planner.walkingOnly": true,
		"planner.defaultLat":  1.2839,
		"planner.defaultLng":  103.8608,
	}
}

// Load builds the config from defaults, then the YAML file at path (or ./config.yaml
// when path is empty and the file exists), then CAFEHOP_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, v := range defaults() {
		if err := k.Set(key, v); err != nil {
			return nil, errors.Wrapf(err, "set default %s", key)
		}
	}

	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	existing := k.Raw()
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, v string) (string, any) {
			// CAFEHOP_STORAGE_SQLITE_PATH -> storage.sqlitePath
			return canonicalizeEnvKey(strings.TrimPrefix(key, EnvPrefix), existing), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables")
	}

	cfg := new(Config)
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	return cfg, nil
}

// Validate rejects unknown drivers and missing connection settings.
func (c *Config) Validate() error {
	driver := strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if !slices.Contains(drivers, driver) {
		return errors.Errorf("storage.driver %q must be one of %s", c.Storage.Driver, strings.Join(drivers, ", "))
	}
	c.Storage.Driver = driver

	switch driver {
	case "sqlite":
		if strings.TrimSpace(c.Storage.SqlitePath) == "" {
			return errors.New("storage.sqlitePath is required for the sqlite driver")
		}
	case "postgres":
		if strings.TrimSpace(c.Storage.DatabaseURL) == "" {
			return errors.New("storage.databaseURL is required for the postgres driver")
		}
	case "redis":
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return errors.New("storage.redisAddr is required for the redis driver")
		}
		if c.Storage.RedisDB < 0 {
			return errors.Errorf("storage.redisDB must be >= 0, got %d", c.Storage.RedisDB)
		}
	}

	if c.Planner.DefaultLat < -90 || c.Planner.DefaultLat > 90 ||
		c.Planner.DefaultLng < -180 || c.Planner.DefaultLng > 180 {
		return errors.Errorf("planner default location (%v, %v) is out of range", c.Planner.DefaultLat, c.Planner.DefaultLng)
	}

	return nil
}

// Get returns the environment variable key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// canonicalizeEnvKey maps an underscore-separated env name onto existing config
// keys, joining segments greedily so SQLITE_PATH can match sqlitePath.
func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := slices.DeleteFunc(strings.Split(strings.ToLower(rawKey), "_"), func(s string) bool { return s == "" })
	canonical := make([]string, 0, len(segments))
	current := existing

	for i := 0; i < len(segments); {
		matched, next, width := findExistingSegment(current, segments[i:])
		if width == 0 {
			canonical = append(canonical, segments[i])
			current = nil
			i++
			continue
		}
		canonical = append(canonical, matched)
		current = next
		i += width
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segments []string) (string, map[string]any, int) {
	if len(current) == 0 {
		return "", nil, 0
	}

	for width := len(segments); width > 0; width-- {
		needle := normalizeToken(strings.Join(segments[:width], ""))
		for key, value := range current {
			if normalizeToken(key) != needle {
				continue
			}
			child, _ := value.(map[string]any)
			return key, child, width
		}
	}

	return "", nil, 0
}

func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
