package mongodriver

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultPrefix is the prefix of the environment variables read by
// [LoadConfig].
const DefaultPrefix = "GODM_MONGO"

// Config holds the connection settings of a [Driver].
type Config struct {
	// URI is the connection string.
	URI string `mapstructure:"uri"`
	// Database is the database every collection belongs to.
	Database string `mapstructure:"database"`
	// Timeout bounds every operation sent to the server.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig reads the settings from the environment variables
// <prefix>_URI, <prefix>_DATABASE and <prefix>_TIMEOUT. If envFile is not
// empty, the same keys are also read from it, and the environment wins over
// the file. A missing file is not an error.
func LoadConfig(prefix string, envFile string) (Config, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	v := viper.New()
	v.SetDefault("uri", "mongodb://localhost:27017")
	v.SetDefault("database", "test")
	v.SetDefault("timeout", 10*time.Second)

	if envFile != "" {
		file := viper.New()
		file.SetConfigFile(envFile)
		file.SetConfigType("env")
		if err := file.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
			}
		}
		filePrefix := strings.ToLower(prefix) + "_"
		for _, key := range file.AllKeys() {
			if name, ok := strings.CutPrefix(key, filePrefix); ok {
				v.SetDefault(name, file.Get(key))
			}
		}
	}

	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.URI == "" {
		return Config{}, errors.New("mongo uri is empty")
	}
	return cfg, nil
}
