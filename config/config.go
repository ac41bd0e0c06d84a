package config

import (
	"github.com/kelseyhightower/envconfig"
)

type (
	// Env holds the values of environment variable based configuration
	Env struct {
		Host         string `envconfig:"HOST" default:"0.0.0.0"`
		Port         int    `envconfig:"PORT" default:"3000"`
		TLSPort      int    `envconfig:"TLS_PORT" default:"3443"`
		TLSCertFile  string `envconfig:"TLS_CERT_FILE" default:"./cert.pem"`
		TLSKeyFile   string `envconfig:"TLS_KEY_FILE" default:"./key.pem"`
		BaseDir      string `envconfig:"GNOCK_BASE_DIR" default:"."`
		DataDir      string `envconfig:"GNOCK_DATA_DIR" default:"data"`
		SnapshotPath string `envconfig:"GNOCK_SNAPSHOT" default:"./mocks.json"`
		SeedPath     string `envconfig:"GNOCK_SEED" default:"./gnockcycle.yaml"`
		StaticDir    string `envconfig:"GNOCK_STATIC_DIR" default:"./public"`
		AdminPath    string `envconfig:"GNOCK_ADMIN_PATH" default:"/_admin"`
		LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat    string `envconfig:"LOG_FORMAT" default:"text"`
	}
)

// Load returns a new Env config, or the first variable that failed to parse
func Load() (*Env, error) {
	cfg := &Env{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
