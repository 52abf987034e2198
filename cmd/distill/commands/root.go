// Package commands implements the CLI commands for distill.
package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/distill/internal/config"
	"github.com/jmylchreest/distill/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "distill",
	Short: "Summarize and extract structured data from PDFs, web pages and text",
	Long: `Distill turns documents into JSON using a language model.

Serve the HTTP API, or run one-shot summaries and extractions from the
command line. Settings come from flags, $HOME/.distill.yaml and DISTILL_*
environment variables, in that order of precedence.

Examples:
  # Start the API on :8000
  distill serve

  # Summarize a web page in about 200 words
  distill summarize -u "https://example.com/article" --max-length 200

  # Pull entities out of a PDF with a local model
  distill extract -f report.pdf --mode entities -p ollama -m llama3.2

  # Custom extraction against a schema
  distill extract -t "..." --mode custom \
      --instructions "List every invoice" --schema invoice.yaml`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()

	// Global flags
	flags.String("config", "", "config file (default $HOME/.distill.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Bool("log-json", false, "log as JSON")

	// LLM settings
	flags.StringP("provider", "p", "", "LLM provider: gemini, openai, anthropic, openrouter, ollama (auto-detects from env vars)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use the provider's env var)")
	flags.String("base-url", "", "custom API base URL")

	// Fetch settings
	flags.String("fetch-mode", "", "fetch mode for URLs: static, dynamic, auto")
	flags.String("cleaner", "", "HTML cleaner: text, readability, trafilatura, markdown, noop")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("log_json", flags.Lookup("log-json"))
	_ = viper.BindPFlag("llm.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("llm.model", flags.Lookup("model"))
	_ = viper.BindPFlag("llm.api_key", flags.Lookup("api-key"))
	_ = viper.BindPFlag("llm.base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("fetch.mode", flags.Lookup("fetch-mode"))
	_ = viper.BindPFlag("fetch.cleaner", flags.Lookup("cleaner"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".distill")
		viper.SetConfigType("yaml")
	}

	// llm.api_key is read from DISTILL_LLM_API_KEY
	viper.SetEnvPrefix("DISTILL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig parses the environment, then applies config file and flag
// values on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("config loaded", "file", viper.ConfigFileUsed(), "provider", cfg.LLM.Provider, "fetch_mode", cfg.Fetch.Mode)
	return cfg, nil
}

// applyOverrides copies every key set in v onto cfg.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) && v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}

	setString("server.addr", &cfg.Server.Addr)
	setString("server.api_prefix", &cfg.Server.APIPrefix)
	setString("server.max_upload_size", &cfg.Server.MaxUploadSize)
	if v.IsSet("server.cors_origins") {
		cfg.Server.CORSOrigins = v.GetStringSlice("server.cors_origins")
	}
	if v.IsSet("server.write_timeout") {
		cfg.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	}

	setString("llm.provider", &cfg.LLM.Provider)
	setString("llm.model", &cfg.LLM.Model)
	setString("llm.api_key", &cfg.LLM.APIKey)
	setString("llm.base_url", &cfg.LLM.BaseURL)
	if v.IsSet("llm.temperature") {
		cfg.LLM.Temperature = v.GetFloat64("llm.temperature")
	}
	if v.IsSet("llm.top_p") {
		cfg.LLM.TopP = v.GetFloat64("llm.top_p")
	}
	if v.IsSet("llm.max_tokens") {
		cfg.LLM.MaxTokens = v.GetInt("llm.max_tokens")
	}
	if v.IsSet("llm.timeout") {
		cfg.LLM.Timeout = v.GetDuration("llm.timeout")
	}
	if v.IsSet("llm.max_retries") {
		cfg.LLM.MaxRetries = v.GetInt("llm.max_retries")
	}
	if v.IsSet("llm.requests_per_minute") {
		cfg.LLM.RequestsPerMinute = v.GetInt("llm.requests_per_minute")
	}
	if v.IsSet("llm.structured_output") {
		cfg.LLM.StructuredOutput = v.GetBool("llm.structured_output")
	}

	setString("fetch.mode", &cfg.Fetch.Mode)
	setString("fetch.cleaner", &cfg.Fetch.Cleaner)
	setString("fetch.user_agent", &cfg.Fetch.UserAgent)
	if v.IsSet("fetch.timeout") {
		cfg.Fetch.Timeout = v.GetDuration("fetch.timeout")
	}

	if v.IsSet("extraction.default_max_length") {
		cfg.Extraction.DefaultMaxLength = v.GetInt("extraction.default_max_length")
	}
	setString("extraction.max_content_size", &cfg.Extraction.MaxContentSize)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
