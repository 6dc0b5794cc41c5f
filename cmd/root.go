package cmd

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/call"
	"github.com/spigell/interview-coach/internal/gateway"
	"github.com/spigell/interview-coach/internal/logger"
	"github.com/spigell/interview-coach/internal/provider"
)

const (
	app = "interview-coach"
)

type Config struct {
	TokenFile string          `mapstructure:"token-file"`
	Token     string          `mapstructure:"token"`
	Provider  provider.Config `mapstructure:"provider"`
	Progress  *struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"progress"`
	Voice   *VoiceConfig   `mapstructure:"voice"`
	Call    call.Settings  `mapstructure:"call"`
	Gateway *GatewayConfig `mapstructure:"gateway"`
}

type VoiceConfig struct {
	URL           string        `mapstructure:"url"`
	PublicKey     string        `mapstructure:"public-key"`
	PublicKeyFile string        `mapstructure:"public-key-file"`
	ReadTimeout   time.Duration `mapstructure:"read-timeout"`
}

type GatewayConfig struct {
	Listen        string           `mapstructure:"listen"`
	AllowOrigins  string           `mapstructure:"allow-origins"`
	JWTSecret     string           `mapstructure:"jwt-secret"`
	JWTSecretFile string           `mapstructure:"jwt-secret-file"`
	RedisURL      string           `mapstructure:"redis-url"`
	Cache         gateway.CacheTTL `mapstructure:"cache"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-coach analyzes how a resume fits a job and runs mock voice interviews",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"token-file":              "COACH_TOKEN_FILE",
		"token":                   "COACH_TOKEN",
		"provider.url":            "COACH_BACKEND_URL",
		"gateway.jwt-secret-file": "COACH_JWT_SECRET_FILE",
		"gateway.redis-url":       "COACH_REDIS_URL",
		"voice.public-key-file":   "COACH_VOICE_KEY_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-coach.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("log-file", "", "also write json logs to this file, rotated")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func initConfig() {
	// .env is optional, values already in the environment win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit config must exist; the default one is optional.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}

	return config, nil
}

// setup builds the logger and reads the config, exiting on failure.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
		File:  strings.TrimSpace(viper.GetString("log-file")),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("config loaded", zap.String("config_file", viper.ConfigFileUsed()))
	return logger, config
}
