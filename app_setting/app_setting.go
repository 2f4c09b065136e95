package app_setting

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	DefaultRemotePostsUri = "https://jsonplaceholder.typicode.com/posts"
	DefaultStoreDriver    = "sqlite"
	DefaultStoreDsn       = "postsync.db"
	DefaultListenAddr     = ":8080"
)

// AppSetting is the yaml setting shared by postsync binaries.
type AppSetting struct {
	// Endpoint returning the JSON array of posts.
	REMOTE_POSTS_URI string `yaml:"REMOTE_POSTS_URI"`
	// Either "sqlite" (local store file) or "postgres".
	STORE_DRIVER string `yaml:"STORE_DRIVER"`
	// Path of the sqlite file, or postgres connection string.
	STORE_DSN string `yaml:"STORE_DSN"`
	// Address the API server listens on.
	LISTEN_ADDR string `yaml:"LISTEN_ADDR"`
	// DogStatsD address, reporting is disabled when empty.
	STATSD_ADDR string `yaml:"STATSD_ADDR"`
	// Refresh once when the server starts.
	REFRESH_ON_LAUNCH bool `yaml:"REFRESH_ON_LAUNCH"`
}

// Default returns the setting used when no yaml file is provided.
func Default() AppSetting {
	s := AppSetting{REFRESH_ON_LAUNCH: true}
	s.applyDefaults()
	return s
}

func (s *AppSetting) applyDefaults() {
	if s.REMOTE_POSTS_URI == "" {
		s.REMOTE_POSTS_URI = DefaultRemotePostsUri
	}
	if s.STORE_DRIVER == "" {
		s.STORE_DRIVER = DefaultStoreDriver
	}
	if s.STORE_DSN == "" {
		s.STORE_DSN = DefaultStoreDsn
	}
	if s.LISTEN_ADDR == "" {
		s.LISTEN_ADDR = DefaultListenAddr
	}
}

// Env always wins over yaml so that credentials can stay in .env files.
func (s *AppSetting) applyEnvOverrides() {
	if v := os.Getenv("POSTSYNC_STORE_DSN"); v != "" {
		s.STORE_DSN = v
	}
	if v := os.Getenv("POSTSYNC_REMOTE_URI"); v != "" {
		s.REMOTE_POSTS_URI = v
	}
}

// ParseAppSetting parses yaml content into AppSetting with defaults and env
// overrides applied.
func ParseAppSetting(content []byte) (AppSetting, error) {
	s := AppSetting{}
	if err := yaml.Unmarshal(content, &s); err != nil {
		return s, errors.Wrap(err, "fail to unmarshal app setting")
	}
	s.applyDefaults()
	s.applyEnvOverrides()
	return s, s.Validate()
}

// LoadAppSetting reads the yaml file at path. A missing file falls back to
// Default().
func LoadAppSetting(path string) (AppSetting, error) {
	content, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		s := Default()
		s.applyEnvOverrides()
		return s, s.Validate()
	}
	if err != nil {
		return AppSetting{}, errors.Wrap(err, "fail to read app setting "+path)
	}
	return ParseAppSetting(content)
}

func (s AppSetting) Validate() error {
	switch s.STORE_DRIVER {
	case "sqlite", "postgres":
	default:
		return errors.Errorf("unsupported STORE_DRIVER %q", s.STORE_DRIVER)
	}
	return nil
}
