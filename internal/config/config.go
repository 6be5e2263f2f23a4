// Package config loads and validates the application configuration.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Graph     GraphConfig     `yaml:"graph" mapstructure:"graph"`
	Airtable  AirtableConfig  `yaml:"airtable" mapstructure:"airtable"`
	Leads     LeadsConfig     `yaml:"leads" mapstructure:"leads"`
	Idealista IdealistaConfig `yaml:"idealista" mapstructure:"idealista"`
	Market    MarketConfig    `yaml:"market" mapstructure:"market"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GraphConfig holds Microsoft Graph app credentials and the mailbox user.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id" mapstructure:"tenant_id"`
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	UserEmail    string `yaml:"user_email" mapstructure:"user_email"`
}

// AirtableConfig holds the Airtable token and table/column bindings.
type AirtableConfig struct {
	Token          string        `yaml:"token" mapstructure:"token"`
	BaseID         string        `yaml:"base_id" mapstructure:"base_id"`
	LeadsTable     string        `yaml:"leads_table" mapstructure:"leads_table"`
	SalesTable     string        `yaml:"sales_table" mapstructure:"sales_table"`
	SalesRefColumn string        `yaml:"sales_ref_column" mapstructure:"sales_ref_column"`
	Columns        ColumnsConfig `yaml:"columns" mapstructure:"columns"`
}

// ColumnsConfig maps lead fields onto Airtable column names. The upstream
// base owns these names, so they are bindings, not constants.
type ColumnsConfig struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Email     string `yaml:"email" mapstructure:"email"`
	Phone     string `yaml:"phone" mapstructure:"phone"`
	Message   string `yaml:"message" mapstructure:"message"`
	Reference string `yaml:"reference" mapstructure:"reference"`
	Link      string `yaml:"link" mapstructure:"link"`
}

// LeadsConfig configures the lead ingestion pipeline.
type LeadsConfig struct {
	SenderFilter     string   `yaml:"sender_filter" mapstructure:"sender_filter"`
	SubjectFilter    string   `yaml:"subject_filter" mapstructure:"subject_filter"`
	ListingBaseURL   string   `yaml:"listing_base_url" mapstructure:"listing_base_url"`
	NotifyRecipients []string `yaml:"notify_recipients" mapstructure:"notify_recipients"`
}

// IdealistaConfig holds Idealista search API credentials.
type IdealistaConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Secret  string `yaml:"secret" mapstructure:"secret"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// MarketConfig configures the market snapshot run.
type MarketConfig struct {
	AreasFile     string `yaml:"areas_file" mapstructure:"areas_file"`
	BenchmarkPath string `yaml:"benchmark_path" mapstructure:"benchmark_path"`
	DataFolder    string `yaml:"data_folder" mapstructure:"data_folder"`
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	Distance      int    `yaml:"distance" mapstructure:"distance"`
	MaxItems      int    `yaml:"max_items" mapstructure:"max_items"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so the
	// required keys without defaults must be bound explicitly or an
	// env-only deployment would fail validation.
	for _, key := range []string{
		"graph.tenant_id", "graph.client_id", "graph.client_secret", "graph.user_email",
		"airtable.token", "airtable.base_id", "airtable.leads_table", "airtable.sales_table",
		"leads.notify_recipients",
		"idealista.api_key", "idealista.secret",
		"market.benchmark_path",
	} {
		_ = v.BindEnv(key) //nolint:errcheck
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("leads.sender_filter", "reply@idealista.com")
	v.SetDefault("leads.subject_filter", "Nuevo mensaje de")
	v.SetDefault("leads.listing_base_url", "https://www.idealista.com/inmueble/")
	v.SetDefault("airtable.sales_ref_column", "Asset ID")
	v.SetDefault("airtable.columns.name", "Lead Name")
	v.SetDefault("airtable.columns.email", "Email")
	v.SetDefault("airtable.columns.phone", "Telefono")
	v.SetDefault("airtable.columns.message", "Mensaje Idealista")
	v.SetDefault("airtable.columns.reference", "Referencia")
	v.SetDefault("airtable.columns.link", "Sales Management")
	v.SetDefault("idealista.base_url", "https://api.idealista.com")
	v.SetDefault("market.areas_file", "areas.yaml")
	v.SetDefault("market.data_folder", "/Idealista API (Datos)/Datos")
	v.SetDefault("market.max_concurrent", 4)
	v.SetDefault("market.distance", 600)
	v.SetDefault("market.max_items", 50)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ValidateProcess checks the settings the lead pipeline requires. Missing
// required configuration fails here, at startup, never at first use.
func (c *Config) ValidateProcess() error {
	missing := missingKeys([]setting{
		{"graph.tenant_id", c.Graph.TenantID},
		{"graph.client_id", c.Graph.ClientID},
		{"graph.client_secret", c.Graph.ClientSecret},
		{"graph.user_email", c.Graph.UserEmail},
		{"airtable.token", c.Airtable.Token},
		{"airtable.base_id", c.Airtable.BaseID},
		{"airtable.leads_table", c.Airtable.LeadsTable},
		{"airtable.sales_table", c.Airtable.SalesTable},
		{"leads.sender_filter", c.Leads.SenderFilter},
	})
	if len(c.Leads.NotifyRecipients) == 0 {
		missing = append(missing, "leads.notify_recipients")
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateMarket checks the settings the market snapshot requires.
func (c *Config) ValidateMarket() error {
	missing := missingKeys([]setting{
		{"graph.tenant_id", c.Graph.TenantID},
		{"graph.client_id", c.Graph.ClientID},
		{"graph.client_secret", c.Graph.ClientSecret},
		{"graph.user_email", c.Graph.UserEmail},
		{"idealista.api_key", c.Idealista.APIKey},
		{"idealista.secret", c.Idealista.Secret},
		{"market.benchmark_path", c.Market.BenchmarkPath},
		{"market.data_folder", c.Market.DataFolder},
		{"market.areas_file", c.Market.AreasFile},
	})
	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

type setting struct {
	key, val string
}

func missingKeys(settings []setting) []string {
	var missing []string
	for _, s := range settings {
		if s.val == "" {
			missing = append(missing, s.key)
		}
	}
	return missing
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
