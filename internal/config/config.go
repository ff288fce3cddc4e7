package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// loadedConfig stores the loaded configuration for use by path helpers.
var loadedConfig *Config

// Config holds the engine's runtime configuration: the workspace root, where
// the audit trail lives, the expression step bound, and a set of default
// paths and limits. Each field's comment says whether anything reads it.
type Config struct {
	// Workspace is the root directory holding workflow documents, relative
	// control files and, unless overridden below, artifacts/checkpoints/audit.
	Workspace string

	// Debug enables verbose structured logging (slog.LevelDebug).
	Debug bool

	// ArtifactDir is read from NEWTON_ARTIFACT_DIR / artifact_dir and defaults
	// to <Workspace>/.newton/artifacts. The artifact store does not use it:
	// its root comes from the workflow's settings.artifact_storage.base_path.
	ArtifactDir string
	// CheckpointDir is read from NEWTON_CHECKPOINT_DIR / checkpoint_dir and
	// defaults to <Workspace>/.newton/checkpoints. The checkpoint store does
	// not use it: it always writes under <Workspace>/.newton/state/workflows.
	CheckpointDir string
	// AuditDir overrides where audit.jsonl and the SQLite audit index live.
	// Defaults to <Workspace>/.newton/audit.
	AuditDir string

	// DefaultMaxParallel is read from NEWTON_MAX_PARALLEL /
	// default_max_parallel (default 4). The scheduler does not read it: the
	// per-tick batch size comes from the workflow's settings.parallel_limit.
	DefaultMaxParallel int
	// DefaultTaskTimeoutSeconds is read from NEWTON_TASK_TIMEOUT_SECONDS /
	// default_task_timeout_seconds (default 300). The scheduler does not read
	// it: a task without its own timeout_ms runs with no timeout.
	DefaultTaskTimeoutSeconds int
	// DefaultMaxExprSteps bounds Starlark execution steps per evaluation.
	DefaultMaxExprSteps int
	// ArtifactQuotaBytes is read from NEWTON_ARTIFACT_QUOTA_BYTES /
	// artifact_quota_bytes (default 1 GiB). The artifact store does not read
	// it: its quota comes from settings.artifact_storage.max_total_bytes.
	ArtifactQuotaBytes int64
}

// InitViper wires config file discovery and environment-variable precedence.
// Environment variables (NEWTON_*) always override the config file, which in
// turn overrides the hardcoded defaults applied in Load.
func InitViper(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err == nil {
			if _, err := os.Stat(filepath.Join(cwd, "newton.yaml")); err == nil {
				viper.AddConfigPath(cwd)
			}
		}
		viper.AddConfigPath(GetNewtonConfigDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName("newton")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "[config] using config file: %s\n", viper.ConfigFileUsed())
	}

	viper.AutomaticEnv()
	bindEnvVars()
	return nil
}

// bindEnvVars explicitly binds NEWTON_* environment variables to their
// config keys, ensuring env vars always win over config-file values.
func bindEnvVars() {
	viper.BindEnv("workspace", "NEWTON_WORKSPACE")
	viper.BindEnv("debug", "NEWTON_DEBUG")
	viper.BindEnv("artifact_dir", "NEWTON_ARTIFACT_DIR")
	viper.BindEnv("checkpoint_dir", "NEWTON_CHECKPOINT_DIR")
	viper.BindEnv("audit_dir", "NEWTON_AUDIT_DIR")
	viper.BindEnv("default_max_parallel", "NEWTON_MAX_PARALLEL")
	viper.BindEnv("default_task_timeout_seconds", "NEWTON_TASK_TIMEOUT_SECONDS")
	viper.BindEnv("default_max_expr_steps", "NEWTON_MAX_EXPR_STEPS")
	viper.BindEnv("artifact_quota_bytes", "NEWTON_ARTIFACT_QUOTA_BYTES")
}

// Load builds a Config from defaults, the config file, and environment
// variables, in ascending priority order, and caches the result for the
// path helpers below.
func Load() (*Config, error) {
	workspace := getEnvOrDefault("NEWTON_WORKSPACE", "")
	if workspace == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: resolve workspace: %w", err)
		}
		workspace = cwd
	}

	cfg := &Config{
		Workspace:                 workspace,
		Debug:                     getEnvBoolOrDefault("NEWTON_DEBUG", false),
		DefaultMaxParallel:        getEnvIntOrDefault("NEWTON_MAX_PARALLEL", 4),
		DefaultTaskTimeoutSeconds: getEnvIntOrDefault("NEWTON_TASK_TIMEOUT_SECONDS", 300),
		DefaultMaxExprSteps:       getEnvIntOrDefault("NEWTON_MAX_EXPR_STEPS", 10000),
		ArtifactQuotaBytes:        int64(getEnvIntOrDefault("NEWTON_ARTIFACT_QUOTA_BYTES", 1<<30)),
	}

	if viper.IsSet("workspace") {
		cfg.Workspace = viper.GetString("workspace")
	}
	if viper.IsSet("debug") {
		cfg.Debug = viper.GetBool("debug")
	}
	if viper.IsSet("default_max_parallel") {
		cfg.DefaultMaxParallel = viper.GetInt("default_max_parallel")
	}
	if viper.IsSet("default_task_timeout_seconds") {
		cfg.DefaultTaskTimeoutSeconds = viper.GetInt("default_task_timeout_seconds")
	}
	if viper.IsSet("default_max_expr_steps") {
		cfg.DefaultMaxExprSteps = viper.GetInt("default_max_expr_steps")
	}
	if viper.IsSet("artifact_quota_bytes") {
		cfg.ArtifactQuotaBytes = viper.GetInt64("artifact_quota_bytes")
	}

	cfg.ArtifactDir = getEnvOrDefault("NEWTON_ARTIFACT_DIR", filepath.Join(cfg.Workspace, ".newton", "artifacts"))
	cfg.CheckpointDir = getEnvOrDefault("NEWTON_CHECKPOINT_DIR", filepath.Join(cfg.Workspace, ".newton", "checkpoints"))
	cfg.AuditDir = getEnvOrDefault("NEWTON_AUDIT_DIR", filepath.Join(cfg.Workspace, ".newton", "audit"))
	if viper.IsSet("artifact_dir") {
		cfg.ArtifactDir = viper.GetString("artifact_dir")
	}
	if viper.IsSet("checkpoint_dir") {
		cfg.CheckpointDir = viper.GetString("checkpoint_dir")
	}
	if viper.IsSet("audit_dir") {
		cfg.AuditDir = viper.GetString("audit_dir")
	}

	loadedConfig = cfg
	return cfg, nil
}

// GetLoadedConfig returns the currently loaded configuration, or nil if
// Load has not run yet.
func GetLoadedConfig() *Config {
	return loadedConfig
}

// GetNewtonConfigDir resolves the directory newton.yaml is discovered in
// when no --config flag is given, falling back to the XDG config directory.
func GetNewtonConfigDir() string {
	if loadedConfig != nil && loadedConfig.Workspace != "" {
		return loadedConfig.Workspace
	}
	if workspace := viper.GetString("workspace"); workspace != "" {
		return workspace
	}
	return getXDGConfigDir()
}

func getXDGConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), ".config", "newton")
			}
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "newton")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
