package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort    string        `mapstructure:"HTTPPort"`
		MetricsPort string        `mapstructure:"metricsPort"`
		Timeout     time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres PostgresConfig `mapstructure:"postgres"`
		Redis    RedisConfig    `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	OAuth  OAuthConfig  `mapstructure:"oauth"`
	Access AccessConfig `mapstructure:"access"`
	Track  TrackConfig  `mapstructure:"track"`
}

// PostgresConfig carries credentials for the standard application role.
// The Privileged pair identifies a separate database role created with
// BYPASSRLS; it is used only by the role-resolution workflow.
type PostgresConfig struct {
	Host               string `mapstructure:"host"`
	Port               string `mapstructure:"port"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	DB                 string `mapstructure:"db"`
	SSLMode            string `mapstructure:"sslmode"`
	PrivilegedUsername string `mapstructure:"privilegedUsername"`
	PrivilegedPassword string `mapstructure:"privilegedPassword"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	SecretKey       string        `mapstructure:"secretKey"`
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
	AccessTokenTTL  time.Duration `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `mapstructure:"refreshTokenTTL"`
	CookieName      string        `mapstructure:"cookieName"`
	CookieDomain    string        `mapstructure:"cookieDomain"`
	SecureCookie    bool          `mapstructure:"secureCookie"`
}

type OAuthConfig struct {
	SessionSecret string `mapstructure:"sessionSecret"`
	Google        struct {
		Key         string `mapstructure:"key"`
		Secret      string `mapstructure:"secret"`
		CallbackURL string `mapstructure:"callbackURL"`
	} `mapstructure:"google"`
}

// AccessConfig tunes the role resolver. ResolveTimeout bounds every
// resolution; on timeout the resolver degrades to role "user" rather than
// surfacing an error. CacheTTL controls the in-process memoization window.
type AccessConfig struct {
	ResolveTimeout time.Duration `mapstructure:"resolveTimeout"`
	CacheTTL       time.Duration `mapstructure:"cacheTTL"`
}

type TrackConfig struct {
	LookupRatePerMinute int           `mapstructure:"lookupRatePerMinute"`
	CacheTTL            time.Duration `mapstructure:"cacheTTL"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}
