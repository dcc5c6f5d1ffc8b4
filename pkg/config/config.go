package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/dbinit/pkg/secret"
)

const (
	DefaultConfigPath = "/etc/dbinit"
	ConfigFileName    = "dbinit.yml"

	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"

	TenantDBPrefix = "tenant_"
)

// Attribute names, also used as YAML keys.
const (
	AttrEngine                 = "engine"
	AttrProfile                = "profile"
	AttrEnvironment            = "environment"
	AttrDatabaseURL            = "database_url"
	AttrAdminUser              = "admin_user"
	AttrAdminPassword          = "admin_password"
	AttrAdminSource            = "admin_source"
	AttrTargetDBs              = "target_dbs"
	AttrAppUser                = "app_user"
	AttrAppPassword            = "app_password"
	AttrSuppressDuplicateError = "suppress_duplicate_error"
	AttrSuccessMessage         = "success_message"
	AttrCompletionMessage      = "completion_message"
	AttrConnectRetries         = "connect_retries"
	AttrConnectTimeout         = "connect_timeout"
)

// Sources an attribute value can come from.
const (
	SourceDefault     = "default"
	SourceProfile     = "profile"
	SourceFile        = "file"
	SourceEnvironment = "environment"
	SourceFlag        = "flag"
)

const maskedValue = "******"

// Non-production credential defaults, matching the stock init hook.
const (
	defaultAdminUser     = "admin"
	defaultAdminPassword = "password"
	defaultAppUser       = "app_user"
	defaultAppPassword   = "app_password"
)

// Config holds everything the bootstrap runner needs.
type Config struct {
	Engine      Engine `json:"engine"`
	Profile     string `json:"profile"`
	Environment string `json:"environment"`

	// DatabaseURL is the server address. Admin credentials are supplied separately.
	DatabaseURL   string `json:"database_url"`
	AdminUser     string `json:"admin_user"`
	AdminPassword string `json:"-"`
	// AdminSource is the database the admin principal authenticates against.
	AdminSource string `json:"admin_source"`

	TargetDBs   []string `json:"target_dbs"`
	AppUser     string   `json:"app_user"`
	AppPassword string   `json:"-"`

	// SuppressDuplicateError turns a "principal already exists" failure into an informational line.
	SuppressDuplicateError bool   `json:"suppress_duplicate_error"`
	SuccessMessage         string `json:"success_message"`
	CompletionMessage      string `json:"completion_message"`

	// ConnectRetries is the number of extra attempts after a connectivity failure.
	ConnectRetries int `json:"connect_retries"`
	// ConnectTimeout is in seconds.
	ConnectTimeout int `json:"connect_timeout"`

	sources        map[string]string
	configFilePath string
}

// fileConfig mirrors dbinit.yml. Pointers distinguish "unset" from zero values.
type fileConfig struct {
	Engine                 *Engine  `yaml:"engine"`
	Profile                string   `yaml:"profile"`
	Environment            string   `yaml:"environment"`
	DatabaseURL            string   `yaml:"database_url"`
	AdminUser              string   `yaml:"admin_user"`
	AdminPassword          string   `yaml:"admin_password"`
	AdminSource            string   `yaml:"admin_source"`
	TargetDBs              []string `yaml:"target_dbs"`
	AppUser                string   `yaml:"app_user"`
	AppPassword            string   `yaml:"app_password"`
	SuppressDuplicateError *bool    `yaml:"suppress_duplicate_error"`
	SuccessMessage         string   `yaml:"success_message"`
	CompletionMessage      string   `yaml:"completion_message"`
	ConnectRetries         *int     `yaml:"connect_retries"`
	ConnectTimeout         *int     `yaml:"connect_timeout"`
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

func attributeNames() []string {
	return []string{
		AttrEngine, AttrProfile, AttrEnvironment, AttrDatabaseURL,
		AttrAdminUser, AttrAdminPassword, AttrAdminSource,
		AttrTargetDBs, AttrAppUser, AttrAppPassword,
		AttrSuppressDuplicateError, AttrSuccessMessage, AttrCompletionMessage,
		AttrConnectRetries, AttrConnectTimeout,
	}
}

func newDefault() *Config {
	c := &Config{
		Engine:            EngineMongo,
		Profile:           DefaultProfile,
		Environment:       EnvironmentDevelopment,
		AdminSource:       "admin",
		TargetDBs:         []string{},
		SuccessMessage:    "Application user created successfully",
		CompletionMessage: "Database initialization completed",
		ConnectRetries:    0,
		ConnectTimeout:    10,
		sources:           make(map[string]string),
	}
	for _, name := range attributeNames() {
		c.sources[name] = SourceDefault
	}
	return c
}

// Load reads $DBINIT_CONFIG_PATH/dbinit.yml (default /etc/dbinit) and the environment.
func Load() (*Config, error) {
	configPath := os.Getenv("DBINIT_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return LoadFile(filepath.Join(configPath, ConfigFileName))
}

// LoadFile loads configuration with precedence default < profile < file < environment.
// A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	c := newDefault()
	c.configFilePath = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		c.applyFileConfig(&fc)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := c.applyEnvConfig(); err != nil {
		return nil, err
	}
	c.applyProfile()
	c.applyDefaults()

	if err := c.openSealedValues(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) set(name, source string) {
	c.sources[name] = source
}

func (c *Config) applyFileConfig(file *fileConfig) {
	if file.Engine != nil {
		c.Engine = *file.Engine
		c.set(AttrEngine, SourceFile)
	}
	setString := func(dst *string, value, name string) {
		if value != "" {
			*dst = value
			c.set(name, SourceFile)
		}
	}
	setString(&c.Profile, file.Profile, AttrProfile)
	setString(&c.Environment, file.Environment, AttrEnvironment)
	setString(&c.DatabaseURL, file.DatabaseURL, AttrDatabaseURL)
	setString(&c.AdminUser, file.AdminUser, AttrAdminUser)
	setString(&c.AdminPassword, file.AdminPassword, AttrAdminPassword)
	setString(&c.AdminSource, file.AdminSource, AttrAdminSource)
	setString(&c.AppUser, file.AppUser, AttrAppUser)
	setString(&c.AppPassword, file.AppPassword, AttrAppPassword)
	setString(&c.SuccessMessage, file.SuccessMessage, AttrSuccessMessage)
	setString(&c.CompletionMessage, file.CompletionMessage, AttrCompletionMessage)

	if len(file.TargetDBs) > 0 {
		c.TargetDBs = file.TargetDBs
		c.set(AttrTargetDBs, SourceFile)
	}
	if file.SuppressDuplicateError != nil {
		c.SuppressDuplicateError = *file.SuppressDuplicateError
		c.set(AttrSuppressDuplicateError, SourceFile)
	}
	if file.ConnectRetries != nil {
		c.ConnectRetries = *file.ConnectRetries
		c.set(AttrConnectRetries, SourceFile)
	}
	if file.ConnectTimeout != nil {
		c.ConnectTimeout = *file.ConnectTimeout
		c.set(AttrConnectTimeout, SourceFile)
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}

func (c *Config) applyEnvConfig() error {
	if val := os.Getenv("DBINIT_ENGINE"); val != "" {
		engine, err := EngineString(val)
		if err != nil {
			return fmt.Errorf("invalid DBINIT_ENGINE: %w", err)
		}
		c.Engine = engine
		c.set(AttrEngine, SourceEnvironment)
	}
	if val := os.Getenv("DBINIT_PROFILE"); val != "" {
		c.Profile = val
		c.set(AttrProfile, SourceEnvironment)
	}
	if val := os.Getenv("DBINIT_ENV"); val != "" {
		c.Environment = val
		c.set(AttrEnvironment, SourceEnvironment)
	}

	// Fall back to the variables the stock database images already use.
	urlVars := []string{"DBINIT_DATABASE_URL", "MONGODB_URL"}
	adminUserVars := []string{"DBINIT_ADMIN_USER", "MONGO_INITDB_ROOT_USERNAME"}
	adminPasswordVars := []string{"DBINIT_ADMIN_PASSWORD", "MONGO_INITDB_ROOT_PASSWORD"}
	if c.Engine == EnginePostgres {
		urlVars = []string{"DBINIT_DATABASE_URL", "DATABASE_URL"}
		adminUserVars = []string{"DBINIT_ADMIN_USER", "POSTGRES_USER"}
		adminPasswordVars = []string{"DBINIT_ADMIN_PASSWORD", "POSTGRES_PASSWORD"}
	}

	if val := firstEnv(urlVars...); val != "" {
		c.DatabaseURL = val
		c.set(AttrDatabaseURL, SourceEnvironment)
	}
	if val := firstEnv(adminUserVars...); val != "" {
		c.AdminUser = val
		c.set(AttrAdminUser, SourceEnvironment)
	}
	if val := firstEnv(adminPasswordVars...); val != "" {
		c.AdminPassword = val
		c.set(AttrAdminPassword, SourceEnvironment)
	}
	if val := os.Getenv("DBINIT_ADMIN_SOURCE"); val != "" {
		c.AdminSource = val
		c.set(AttrAdminSource, SourceEnvironment)
	}
	if val := os.Getenv("DBINIT_TARGET_DB"); val != "" {
		c.TargetDBs = splitAndTrim(val)
		c.set(AttrTargetDBs, SourceEnvironment)
	}
	if val := os.Getenv("DBINIT_APP_USER"); val != "" {
		c.AppUser = val
		c.set(AttrAppUser, SourceEnvironment)
	}
	if val := os.Getenv("DBINIT_APP_PASSWORD"); val != "" {
		c.AppPassword = val
		c.set(AttrAppPassword, SourceEnvironment)
	}
	if val := os.Getenv("DBINIT_SUPPRESS_DUPLICATE_ERROR"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid DBINIT_SUPPRESS_DUPLICATE_ERROR: %w", err)
		}
		c.SuppressDuplicateError = b
		c.set(AttrSuppressDuplicateError, SourceEnvironment)
	}
	if val := os.Getenv("DBINIT_CONNECT_RETRIES"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid DBINIT_CONNECT_RETRIES: %w", err)
		}
		c.ConnectRetries = i
		c.set(AttrConnectRetries, SourceEnvironment)
	}
	if val := os.Getenv("DBINIT_CONNECT_TIMEOUT"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid DBINIT_CONNECT_TIMEOUT: %w", err)
		}
		c.ConnectTimeout = i
		c.set(AttrConnectTimeout, SourceEnvironment)
	}
	return nil
}

// applyProfile fills attributes nobody set explicitly. In production the
// profile only applies when it was chosen explicitly.
func (c *Config) applyProfile() {
	p, ok := Profiles[c.Profile]
	if !ok {
		return
	}
	if c.IsProduction() && c.Source(AttrProfile) == SourceDefault {
		return
	}

	if c.Source(AttrTargetDBs) == SourceDefault {
		c.TargetDBs = []string{p.TargetDB}
		c.set(AttrTargetDBs, SourceProfile)
	}
	if c.Source(AttrSuppressDuplicateError) == SourceDefault {
		c.SuppressDuplicateError = p.SuppressDuplicateError
		c.set(AttrSuppressDuplicateError, SourceProfile)
	}
	if c.Source(AttrSuccessMessage) == SourceDefault {
		c.SuccessMessage = p.SuccessMessage
		c.set(AttrSuccessMessage, SourceProfile)
	}
	if c.Source(AttrCompletionMessage) == SourceDefault {
		c.CompletionMessage = p.Completion(c.Engine)
		c.set(AttrCompletionMessage, SourceProfile)
	}
}

// applyDefaults fills credentials outside production and the server address everywhere.
func (c *Config) applyDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = c.Engine.DefaultURL()
	}
	if c.Source(AttrAdminSource) == SourceDefault {
		c.AdminSource = c.Engine.DefaultAdminSource()
	}
	if c.IsProduction() {
		return
	}
	if c.AdminUser == "" {
		c.AdminUser = defaultAdminUser
	}
	if c.AdminPassword == "" {
		c.AdminPassword = defaultAdminPassword
	}
	if c.AppUser == "" {
		c.AppUser = defaultAppUser
	}
	if c.AppPassword == "" {
		c.AppPassword = defaultAppPassword
	}
}

func (c *Config) openSealedValues() error {
	fields := []struct {
		name  string
		value *string
	}{
		{AttrDatabaseURL, &c.DatabaseURL},
		{AttrAdminUser, &c.AdminUser},
		{AttrAdminPassword, &c.AdminPassword},
		{AttrAppUser, &c.AppUser},
		{AttrAppPassword, &c.AppPassword},
	}

	var cipher secret.Cipher
	for _, f := range fields {
		if !secret.IsSealed(*f.value) {
			continue
		}
		if cipher == nil {
			sym, err := secret.CipherFromEnv()
			if err != nil {
				return err
			}
			cipher = sym
		}
		plain, err := secret.Open(cipher, f.name, *f.value)
		if err != nil {
			return err
		}
		*f.value = plain
	}
	return nil
}

// AddTenants appends one tenant_<id> target database per id.
func (c *Config) AddTenants(ids ...string) {
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		c.TargetDBs = append(c.TargetDBs, TenantDBPrefix+id)
	}
	c.set(AttrTargetDBs, SourceFlag)
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return SourceDefault
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return SourceDefault
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvironmentProduction)
}

// ConnectTimeoutDuration returns the connect timeout as a duration
func (c *Config) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Engine.IsAEngine() {
		return fmt.Errorf("invalid engine: %s", c.Engine)
	}
	if _, ok := Profiles[c.Profile]; !ok {
		return fmt.Errorf("unknown profile %q (known: %s)", c.Profile, strings.Join(ProfileNames(), ", "))
	}

	if err := c.validateURL(); err != nil {
		return err
	}

	required := []struct {
		name  string
		value string
	}{
		{AttrAdminUser, c.AdminUser},
		{AttrAdminPassword, c.AdminPassword},
		{AttrAppUser, c.AppUser},
		{AttrAppPassword, c.AppPassword},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	if len(c.TargetDBs) == 0 {
		return fmt.Errorf("%s is required", AttrTargetDBs)
	}
	seen := make(map[string]bool, len(c.TargetDBs))
	for _, name := range c.TargetDBs {
		if err := ValidateDatabaseName(c.Engine, name); err != nil {
			return err
		}
		if seen[name] {
			return fmt.Errorf("duplicate target database: %s", name)
		}
		seen[name] = true
	}

	if c.ConnectRetries < 0 {
		return fmt.Errorf("%s must not be negative", AttrConnectRetries)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%s must be positive", AttrConnectTimeout)
	}
	return nil
}

func (c *Config) validateURL() error {
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", AttrDatabaseURL, err)
	}
	for _, scheme := range c.Engine.Schemes() {
		if u.Scheme == scheme {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: scheme %q does not match engine %s", AttrDatabaseURL, u.Scheme, c.Engine)
}

// ValidateDatabaseName checks a target database name against the engine's naming rules.
func ValidateDatabaseName(engine Engine, name string) error {
	if name == "" {
		return errors.New("target database name must not be empty")
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("invalid database name %q: contains NUL", name)
	}
	switch engine {
	case EnginePostgres:
		if len(name) > 63 {
			return fmt.Errorf("invalid database name %q: longer than 63 bytes", name)
		}
	default:
		if len(name) >= 64 {
			return fmt.Errorf("invalid database name %q: longer than 63 bytes", name)
		}
		if i := strings.IndexAny(name, `/\. "$`); i >= 0 {
			return fmt.Errorf("invalid database name %q: illegal character %q", name, name[i])
		}
	}
	return nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}

// RedactedURL is DatabaseURL with any password replaced.
func (c *Config) RedactedURL() string {
	return redactURL(c.DatabaseURL)
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	return maskedValue
}

// Attributes returns all configuration attributes with their values and sources.
// Passwords are masked.
func (c *Config) Attributes() []Attribute {
	return []Attribute{
		{Name: AttrEngine, Value: c.Engine.String(), Source: c.Source(AttrEngine)},
		{Name: AttrProfile, Value: c.Profile, Source: c.Source(AttrProfile)},
		{Name: AttrEnvironment, Value: c.Environment, Source: c.Source(AttrEnvironment)},
		{Name: AttrDatabaseURL, Value: c.RedactedURL(), Source: c.Source(AttrDatabaseURL)},
		{Name: AttrAdminUser, Value: c.AdminUser, Source: c.Source(AttrAdminUser)},
		{Name: AttrAdminPassword, Value: mask(c.AdminPassword), Source: c.Source(AttrAdminPassword)},
		{Name: AttrAdminSource, Value: c.AdminSource, Source: c.Source(AttrAdminSource)},
		{Name: AttrTargetDBs, Value: strings.Join(c.TargetDBs, ","), Source: c.Source(AttrTargetDBs)},
		{Name: AttrAppUser, Value: c.AppUser, Source: c.Source(AttrAppUser)},
		{Name: AttrAppPassword, Value: mask(c.AppPassword), Source: c.Source(AttrAppPassword)},
		{Name: AttrSuppressDuplicateError, Value: strconv.FormatBool(c.SuppressDuplicateError), Source: c.Source(AttrSuppressDuplicateError)},
		{Name: AttrSuccessMessage, Value: c.SuccessMessage, Source: c.Source(AttrSuccessMessage)},
		{Name: AttrCompletionMessage, Value: c.CompletionMessage, Source: c.Source(AttrCompletionMessage)},
		{Name: AttrConnectRetries, Value: strconv.Itoa(c.ConnectRetries), Source: c.Source(AttrConnectRetries)},
		{Name: AttrConnectTimeout, Value: strconv.Itoa(c.ConnectTimeout), Source: c.Source(AttrConnectTimeout)},
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-28s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-28s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-28s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
