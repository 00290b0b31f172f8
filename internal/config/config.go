// Package config loads the compiler configuration: the target environment,
// naming inputs for the root folder and the defaults applied to every job.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ctmflow/internal/compiler"
	"github.com/roach88/ctmflow/internal/ir"
	"github.com/roach88/ctmflow/internal/registry"
)

// Environments lists the accepted target environments.
var Environments = []string{"saas_dev", "saas_preprod", "saas_prod", "vse_dev", "vse_qa", "vse_prod"}

// ErrUnknownEnvironment is returned for environments outside Environments.
var ErrUnknownEnvironment = errors.New("unknown environment")

// Config is the compiler configuration. The zero value is not usable;
// start from Default or Load.
type Config struct {
	Environment string `yaml:"environment"`

	// UserCode namespaces the folder and application names:
	// "{user}_{folder}", "{user}-{application}", "{user}-{sub_application}".
	UserCode       string `yaml:"user_code"`
	Folder         string `yaml:"folder"`
	Application    string `yaml:"application"`
	SubApplication string `yaml:"sub_application"`

	RunAs        string `yaml:"run_as"`
	Host         string `yaml:"host"`
	OrderMethod  string `yaml:"order_method"`
	SiteStandard string `yaml:"site_standard"`

	JobPrefix        string `yaml:"job_prefix"`
	EventPrefix      string `yaml:"event_prefix"`
	StrictEventNames bool   `yaml:"strict_event_names"`

	// Catalogs are extra job-type catalog files loaded over the built-in one.
	Catalogs []string `yaml:"catalogs"`

	// Ledger is the path of the SQLite run ledger.
	Ledger string `yaml:"ledger"`

	// CTM configures the engine command line client.
	CTM CTMConfig `yaml:"ctm"`
}

// CTMConfig configures the ctm command line client.
type CTMConfig struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Environment:    "saas_dev",
		UserCode:       "LBA",
		Folder:         "DEMGEN_VB",
		Application:    "DMO-GEN",
		SubApplication: "TEST-APP",
		RunAs:          "ctmagent",
		Host:           "zzz-linux-agents",
		OrderMethod:    "Manual",
		SiteStandard:   "Empty",
		JobPrefix:      compiler.DefaultJobPrefix,
		Ledger:         "ctmflow.db",
		CTM:            CTMConfig{Binary: "ctm"},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the environment and the naming inputs.
func (c Config) Validate() error {
	if !slices.Contains(Environments, c.Environment) {
		return fmt.Errorf("%w %q (must be one of %s)", ErrUnknownEnvironment, c.Environment, strings.Join(Environments, ", "))
	}
	if c.Folder == "" {
		return errors.New("folder is required")
	}
	if c.OrderMethod == "" {
		return errors.New("order_method is required")
	}
	return nil
}

// ControlmServer maps the environment to its server name. SaaS
// environments share one server.
func (c Config) ControlmServer() string {
	switch {
	case strings.HasPrefix(c.Environment, "saas"):
		return "IN01"
	case c.Environment == "vse_dev":
		return "DEV"
	case c.Environment == "vse_qa":
		return "QA"
	case c.Environment == "vse_prod":
		return "PROD"
	}
	return ""
}

// RootFolder returns the folder attributes rendered into every plan.
func (c Config) RootFolder() ir.Folder {
	return ir.Folder{
		Name:           c.FolderPrefix() + c.Folder,
		ControlmServer: c.ControlmServer(),
		OrderMethod:    c.OrderMethod,
		SiteStandard:   c.SiteStandard,
		Application:    c.qualify("-", c.Application),
		SubApplication: c.qualify("-", c.SubApplication),
		RunAs:          c.RunAs,
		Host:           c.Host,
	}
}

// FolderPrefix returns the user-code qualifier of folder names ("LBA_"),
// or "" without a user code.
func (c Config) FolderPrefix() string {
	if c.UserCode == "" {
		return ""
	}
	return c.UserCode + "_"
}

func (c Config) qualify(sep, name string) string {
	if c.UserCode == "" || name == "" {
		return name
	}
	return c.UserCode + sep + name
}

// Registry builds the job-type registry: the built-in catalog overlaid
// with every configured catalog file, in order.
func (c Config) Registry() (*registry.Catalog, error) {
	cat, err := registry.Builtin()
	if err != nil {
		return nil, err
	}
	for _, path := range c.Catalogs {
		if err := cat.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// CompilerOptions converts the config into per-call compiler options.
func (c Config) CompilerOptions(reg registry.Registry, logger *slog.Logger) compiler.Options {
	return compiler.Options{
		Folder:           c.RootFolder(),
		FolderPrefix:     c.FolderPrefix(),
		Registry:         reg,
		JobPrefix:        c.JobPrefix,
		EventPrefix:      c.EventPrefix,
		StrictEventNames: c.StrictEventNames,
		Logger:           logger,
	}
}
