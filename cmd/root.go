package cmd

import (
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-ranker/internal/scoring"
)

const (
	app = "cv-ranker"
)

type Config struct {
	Resumes  *ResumesConfig   `mapstructure:"resumes"`
	Weights  *scoring.Weights `mapstructure:"weights"`
	Embedder *EmbedderConfig  `mapstructure:"embedder"`
	SMTP     *SMTPConfig      `mapstructure:"smtp"`
	Notify   *NotifyConfig    `mapstructure:"notify"`
	Server   *ServerConfig    `mapstructure:"server"`
	Port     string           `mapstructure:"port"`
}

type ResumesConfig struct {
	Folder        string `mapstructure:"folder"`
	ResponsesFile string `mapstructure:"responses-file"`
	Workers       int    `mapstructure:"workers"`
	OnError       string `mapstructure:"on-error"`
}

type EmbedderConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Gemini     *GeminiConfig `mapstructure:"gemini"`
	Ollama     *OllamaConfig `mapstructure:"ollama"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
}

type OllamaConfig struct {
	URL string `mapstructure:"url"`
}

type SMTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	PasswordFile string `mapstructure:"password-file"`
	From         string `mapstructure:"from"`
}

type NotifyConfig struct {
	TopK   int  `mapstructure:"top-k"`
	DryRun bool `mapstructure:"dry-run"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-ranker ranks a folder of resumes against the skills a recruiter is looking for",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

// legacyEnv maps config keys to the environment variables older deployments use.
var legacyEnv = map[string]string{
	"resumes.folder":         "RESUME_FOLDER",
	"resumes.responses-file": "RESPONSES_FILE",
	"smtp.host":              "SMTP_HOST",
	"smtp.port":              "SMTP_PORT",
	"smtp.username":          "SMTP_USER",
	"port":                   "PORT",
}

func init() {
	for key, env := range legacyEnv {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Only the ranking commands need configuration.
	if serveCmd.CalledAs() == "" && interactiveCmd.CalledAs() == "" {
		return
	}

	// A .env file is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
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
		// Without an explicit file the environment alone may configure everything.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
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
	config.applyDefaults()

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Resumes == nil {
		c.Resumes = &ResumesConfig{}
	}
	if c.Embedder == nil {
		c.Embedder = &EmbedderConfig{}
	}
	if c.Embedder.Gemini == nil {
		c.Embedder.Gemini = &GeminiConfig{}
	}
	if c.Embedder.Ollama == nil {
		c.Embedder.Ollama = &OllamaConfig{}
	}
	if c.SMTP == nil {
		c.SMTP = &SMTPConfig{}
	}
	if c.Notify == nil {
		c.Notify = &NotifyConfig{}
	}
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
}
