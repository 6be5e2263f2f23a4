package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "reply@idealista.com", cfg.Leads.SenderFilter)
	assert.Equal(t, "Nuevo mensaje de", cfg.Leads.SubjectFilter)
	assert.Equal(t, "https://www.idealista.com/inmueble/", cfg.Leads.ListingBaseURL)
	assert.Equal(t, "Asset ID", cfg.Airtable.SalesRefColumn)
	assert.Equal(t, "Lead Name", cfg.Airtable.Columns.Name)
	assert.Equal(t, "Email", cfg.Airtable.Columns.Email)
	assert.Equal(t, "Telefono", cfg.Airtable.Columns.Phone)
	assert.Equal(t, "Mensaje Idealista", cfg.Airtable.Columns.Message)
	assert.Equal(t, "Sales Management", cfg.Airtable.Columns.Link)
	assert.Equal(t, "https://api.idealista.com", cfg.Idealista.BaseURL)
	assert.Equal(t, 4, cfg.Market.MaxConcurrent)
	assert.Equal(t, 600, cfg.Market.Distance)
	assert.Equal(t, 50, cfg.Market.MaxItems)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
graph:
  tenant_id: tenant-1
  user_email: inbox@urbeneye.com
leads:
  sender_filter: noreply@other.com
  notify_recipients:
    - sales@urbeneye.com
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tenant-1", cfg.Graph.TenantID)
	assert.Equal(t, "inbox@urbeneye.com", cfg.Graph.UserEmail)
	assert.Equal(t, "noreply@other.com", cfg.Leads.SenderFilter)
	assert.Equal(t, []string{"sales@urbeneye.com"}, cfg.Leads.NotifyRecipients)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, "Nuevo mensaje de", cfg.Leads.SubjectFilter)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
leads:
  sender_filter: file@idealista.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADSYNC_LOG_LEVEL", "warn")
	t.Setenv("LEADSYNC_LEADS_SENDER_FILTER", "env@idealista.com")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "env@idealista.com", cfg.Leads.SenderFilter)
}

func TestLoadEnvOnly(t *testing.T) {
	// No config.yaml at all: every required key comes from the environment.
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LEADSYNC_GRAPH_TENANT_ID", "tenant-1")
	t.Setenv("LEADSYNC_GRAPH_CLIENT_ID", "client-1")
	t.Setenv("LEADSYNC_GRAPH_CLIENT_SECRET", "secret-1")
	t.Setenv("LEADSYNC_GRAPH_USER_EMAIL", "inbox@urbeneye.com")
	t.Setenv("LEADSYNC_AIRTABLE_TOKEN", "pat-1")
	t.Setenv("LEADSYNC_AIRTABLE_BASE_ID", "appBase")
	t.Setenv("LEADSYNC_AIRTABLE_LEADS_TABLE", "tblLeads")
	t.Setenv("LEADSYNC_AIRTABLE_SALES_TABLE", "tblSales")
	t.Setenv("LEADSYNC_LEADS_NOTIFY_RECIPIENTS", "sales@urbeneye.com,ops@urbeneye.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tenant-1", cfg.Graph.TenantID)
	assert.Equal(t, "inbox@urbeneye.com", cfg.Graph.UserEmail)
	assert.Equal(t, "pat-1", cfg.Airtable.Token)
	assert.Equal(t, []string{"sales@urbeneye.com", "ops@urbeneye.com"}, cfg.Leads.NotifyRecipients)
	assert.NoError(t, cfg.ValidateProcess())
}

// validProcess returns a Config that passes ValidateProcess.
func validProcess() *Config {
	return &Config{
		Graph: GraphConfig{
			TenantID:     "tenant-1",
			ClientID:     "client-1",
			ClientSecret: "secret-1",
			UserEmail:    "inbox@urbeneye.com",
		},
		Airtable: AirtableConfig{
			Token:      "pat-1",
			BaseID:     "appBase",
			LeadsTable: "tblLeads",
			SalesTable: "tblSales",
		},
		Leads: LeadsConfig{
			SenderFilter:     "reply@idealista.com",
			NotifyRecipients: []string{"sales@urbeneye.com"},
		},
	}
}

func TestValidateProcess_AllPresent(t *testing.T) {
	assert.NoError(t, validProcess().ValidateProcess())
}

func TestValidateProcess_MissingFields(t *testing.T) {
	cfg := validProcess()
	cfg.Airtable.Token = ""
	cfg.Graph.ClientSecret = ""
	cfg.Leads.NotifyRecipients = nil

	err := cfg.ValidateProcess()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "airtable.token")
	assert.Contains(t, err.Error(), "graph.client_secret")
	assert.Contains(t, err.Error(), "leads.notify_recipients")
}

func TestValidateMarket_MissingFields(t *testing.T) {
	cfg := &Config{}

	err := cfg.ValidateMarket()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idealista.api_key")
	assert.Contains(t, err.Error(), "market.benchmark_path")
}

func TestValidateMarket_AllPresent(t *testing.T) {
	cfg := &Config{
		Graph: GraphConfig{
			TenantID:     "tenant-1",
			ClientID:     "client-1",
			ClientSecret: "secret-1",
			UserEmail:    "inbox@urbeneye.com",
		},
		Idealista: IdealistaConfig{APIKey: "key", Secret: "sec"},
		Market: MarketConfig{
			AreasFile:     "areas.yaml",
			BenchmarkPath: "/data/benchmark.xlsx",
			DataFolder:    "/data/out",
		},
	}
	assert.NoError(t, cfg.ValidateMarket())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
