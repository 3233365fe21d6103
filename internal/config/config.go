// Package config loads the bootsys endpoints file and carries the per-run
// options resolved from CLI flags. There is no process-wide mutable
// configuration: Load produces an immutable Config and each invocation
// builds one RunOptions value that is passed down the call chain.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no --config flag is given.
const DefaultPath = "/etc/bootsys/bootsys.yaml"

// Config describes the services and hosts one system's lifecycle is
// orchestrated against. It is read once at startup and never mutated.
type Config struct {
	// Services holds the base URLs of the management services.
	Services ServicesConfig `yaml:"services"`

	// TokenEnv names the environment variable carrying the API gateway
	// bearer token. Defaults to BOOTSYS_API_TOKEN.
	TokenEnv string `yaml:"token_env"`

	// S3 configures the object storage bucket used for pod-state snapshots.
	S3 S3Config `yaml:"s3"`

	// LocalNCN is the management node this process runs on. It is always
	// excluded from node power operations.
	LocalNCN string `yaml:"local_ncn"`

	// SSH configures node access for OS-level operations.
	SSH SSHConfig `yaml:"ssh"`

	// CephMon is the host queried for storage health. Defaults to the
	// first storage node reported by the inventory when empty.
	CephMon string `yaml:"ceph_mon"`

	// Kubeconfig is the path to the management cluster kubeconfig.
	Kubeconfig string `yaml:"kubeconfig"`

	// PodComparePolicy selects how the boot-time pod check compares live
	// pods against the pre-shutdown snapshot: "owner-group" (default) or
	// "exact-name".
	PodComparePolicy string `yaml:"pod_compare_policy"`

	// BOSTemplates are the session templates used for compute node
	// boot/shutdown when not overridden on the command line.
	BOSTemplates []string `yaml:"bos_templates"`

	// WorkerLimit bounds per-stage fan-out across nodes.
	WorkerLimit int `yaml:"worker_limit"`
}

// ServicesConfig holds management service base URLs.
type ServicesConfig struct {
	CAPMC  string `yaml:"capmc"`
	BOS    string `yaml:"bos"`
	HSM    string `yaml:"hsm"`
	Fabric string `yaml:"fabric"`

	// Sessions maps service name to the URL listing that service's
	// sessions, for the pre-shutdown active-session check.
	Sessions map[string]string `yaml:"sessions"`
}

// S3Config holds snapshot bucket access settings. Credentials are named by
// environment variable so the file itself holds no secrets.
type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
}

// SSHConfig holds node access settings.
type SSHConfig struct {
	User    string `yaml:"user"`
	KeyPath string `yaml:"key_path"`

	// BMCSuffix is appended to a node name to reach its BMC
	// (e.g. "-mgmt"). Used for out-of-band power control.
	BMCSuffix string `yaml:"bmc_suffix"`
}

// Load reads and validates the config file at path, falling back to
// DefaultPath when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TokenEnv == "" {
		c.TokenEnv = "BOOTSYS_API_TOKEN"
	}
	if c.SSH.User == "" {
		c.SSH.User = "root"
	}
	if c.SSH.BMCSuffix == "" {
		c.SSH.BMCSuffix = "-mgmt"
	}
	if c.Kubeconfig == "" {
		c.Kubeconfig = "/etc/kubernetes/admin.conf"
	}
	if c.PodComparePolicy == "" {
		c.PodComparePolicy = "owner-group"
	}
	if c.WorkerLimit <= 0 {
		c.WorkerLimit = 8
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
}

func (c *Config) validate() error {
	if c.LocalNCN == "" {
		return fmt.Errorf("local_ncn is required")
	}
	switch c.PodComparePolicy {
	case "owner-group", "exact-name":
	default:
		return fmt.Errorf("unknown pod_compare_policy %q", c.PodComparePolicy)
	}
	return nil
}

// APIToken returns the gateway bearer token from the configured environment
// variable, or empty when unset.
func (c *Config) APIToken() string {
	return os.Getenv(c.TokenEnv)
}
