package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/agentops/evogate/pkg/gate"
)

// Config holds application configuration
type Config struct {
	// Storage
	StorageEnabled bool
	DatabaseURL    string

	// Live readings
	PrometheusURL string

	// Sandbox
	SandboxImage     string
	SandboxNamespace string

	// Gate thresholds
	ImprovementThreshold float64
	RegressionTolerance  float64
	ScaleLinearityFloor  float64
	ResultTTL            time.Duration
	Cooldown             time.Duration

	// Output
	Verbose bool
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	return &Config{
		StorageEnabled:       getEnvBool("STORAGE_ENABLED", true),
		DatabaseURL:          getEnv("DATABASE_URL", "host=localhost port=5432 user=evogate password=devpassword dbname=evogate sslmode=disable"),
		PrometheusURL:        getEnv("PROMETHEUS_URL", "http://localhost:9090"),
		SandboxImage:         getEnv("SANDBOX_IMAGE", "agent-sandbox:latest"),
		SandboxNamespace:     getEnv("SANDBOX_NAMESPACE", "evogate-sandbox"),
		ImprovementThreshold: getEnvFloat("IMPROVEMENT_THRESHOLD", 0.15),
		RegressionTolerance:  getEnvFloat("REGRESSION_TOLERANCE", 0.05),
		ScaleLinearityFloor:  getEnvFloat("SCALE_LINEARITY_FLOOR", 0.80),
		ResultTTL:            24 * time.Hour,
		Cooldown:             2 * time.Second,
		Verbose:              false,
	}
}

// GateConfig builds the decision gate configuration from this config.
func (c *Config) GateConfig() gate.Config {
	cfg := gate.DefaultConfig()
	cfg.ImprovementThreshold = c.ImprovementThreshold
	cfg.RegressionTolerance = c.RegressionTolerance
	cfg.ScaleLinearityFloor = c.ScaleLinearityFloor
	cfg.ResultTTL = c.ResultTTL
	cfg.Cooldown = c.Cooldown
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.StorageEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	if c.ImprovementThreshold <= 0 || c.ImprovementThreshold >= 1 {
		return fmt.Errorf("improvement threshold must be in (0, 1)")
	}
	if c.RegressionTolerance < 0 || c.RegressionTolerance >= 1 {
		return fmt.Errorf("regression tolerance must be in [0, 1)")
	}
	if c.ScaleLinearityFloor <= 0 || c.ScaleLinearityFloor > 1 {
		return fmt.Errorf("scale linearity floor must be in (0, 1]")
	}
	if c.SandboxImage == "" {
		return fmt.Errorf("SANDBOX_IMAGE must be set")
	}
	return nil
}
