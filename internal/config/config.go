package config

import (
	"time"

	"github.com/prospectlens/prospectlens/internal/ailink"
)

// Config represents the complete application configuration.
// Values come from code defaults, an optional YAML file, PROSPECTLENS_* environment
// variables and runtime overrides, in increasing precedence.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Sheet   SheetConfig   `mapstructure:"sheet"`
	Columns ColumnsConfig `mapstructure:"columns"`
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	CRM     CRMConfig     `mapstructure:"crm"`
	AILink  ailink.Config `mapstructure:"ailink"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`

	// OptimisticWrites rejects sheet writes whose version stamp is stale.
	OptimisticWrites bool `mapstructure:"optimistic_writes"`
}

// SheetConfig selects where the prospect sheet lives.
type SheetConfig struct {
	// Backend is "csv" (default) or "libsql".
	Backend   string        `mapstructure:"backend"`
	Path      string        `mapstructure:"path"`
	Table     string        `mapstructure:"table"`
	Delimiter string        `mapstructure:"delimiter"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// ColumnsConfig maps canonical fields to header aliases, most specific first.
type ColumnsConfig struct {
	Identity string              `mapstructure:"identity"`
	Priority string              `mapstructure:"priority"`
	Aliases  map[string][]string `mapstructure:"aliases"`
}

// EnrichConfig controls the enrichment cycle.
type EnrichConfig struct {
	Fields      []string      `mapstructure:"fields"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	Prompt      string        `mapstructure:"prompt"`
	Role        string        `mapstructure:"role"`
	Model       string        `mapstructure:"model"`
	History     bool          `mapstructure:"history"`
}

// CRMConfig holds follow-up options offered for manual edits.
type CRMConfig struct {
	Statuses []string `mapstructure:"statuses"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Field names used across the sheet.
const (
	FieldName          = "name"
	FieldRevenue       = "revenue"
	FieldEBITDA        = "ebitda"
	FieldPriority      = "priority"
	FieldPotential     = "potential"
	FieldGroup         = "group"
	FieldShareholder   = "shareholder"
	FieldContact       = "contact"
	FieldEmail         = "email"
	FieldNetDebt       = "net_debt"
	FieldDebtMaturity  = "debt_maturity"
	FieldControversies = "controversies"
	FieldStatus        = "status"
	FieldComments      = "comments"
	FieldNews          = "news"
)

// DefaultAliases matches the headers of the French prospect sheets.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		FieldName:          {"nom de l'entité", "entité", "société", "entreprise", "company", "name"},
		FieldRevenue:       {"ca (m€)", "chiffre d'affaires", "revenue"},
		FieldEBITDA:        {"ebitda"},
		FieldPriority:      {"priorité", "priorite", "priority"},
		FieldPotential:     {"potentiel", "potential"},
		FieldGroup:         {"maison mère", "groupe", "group"},
		FieldShareholder:   {"actionnaire", "shareholder"},
		FieldContact:       {"personne de contact", "contact"},
		FieldEmail:         {"email", "e-mail", "mail"},
		FieldNetDebt:       {"dette nette", "net debt", "dette"},
		FieldDebtMaturity:  {"maturité", "maturite", "maturity"},
		FieldControversies: {"controverses", "esg", "controvers"},
		FieldStatus:        {"statut", "status"},
		FieldComments:      {"commentaires", "comments"},
		FieldNews:          {"actualité", "actualite", "news"},
	}
}

// DefaultEnrichFields are the fields a provider is asked to fill.
func DefaultEnrichFields() []string {
	return []string{
		FieldRevenue,
		FieldEBITDA,
		FieldNetDebt,
		FieldGroup,
		FieldShareholder,
		FieldDebtMaturity,
		FieldControversies,
		FieldContact,
		FieldEmail,
		FieldNews,
	}
}

// DefaultStatuses are the follow-up states offered by the CRM.
func DefaultStatuses() []string {
	return []string{"À contacter", "Contacté", "RDV fixé", "En cours", "Gagné", "Stand-by"}
}

// FieldDescriptions explain each enrichable field to the provider.
func FieldDescriptions() map[string]string {
	return map[string]string{
		FieldRevenue:       "chiffre d'affaires du dernier exercice, en M€",
		FieldEBITDA:        "EBITDA du dernier exercice, en M€",
		FieldNetDebt:       "dette nette, en M€",
		FieldGroup:         "maison mère ou groupe d'appartenance",
		FieldShareholder:   "actionnaire principal (fonds, famille, coté)",
		FieldDebtMaturity:  "échéance de la principale ligne de dette (année)",
		FieldControversies: "controverses ESG ou judiciaires notables",
		FieldContact:       "dirigeant financier à contacter (nom, fonction)",
		FieldEmail:         "email professionnel public du contact",
		FieldNews:          "dernière actualité M&A ou financement, datée",
		FieldPotential:     "potentiel commercial de 1 à 5",
	}
}
