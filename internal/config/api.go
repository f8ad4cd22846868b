package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/underwrite/pkg/formatting"
	"github.com/JaimeStill/underwrite/pkg/middleware"
	"github.com/JaimeStill/underwrite/pkg/openapi"
	"github.com/JaimeStill/underwrite/pkg/pagination"
)

const (
	EnvAPIBasePath     = "UNDERWRITE_API_BASE_PATH"
	EnvAPIInternalPath = "UNDERWRITE_API_INTERNAL_PATH"
	EnvAPIMaxBodySize  = "UNDERWRITE_API_MAX_BODY_SIZE"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "UNDERWRITE_CORS_ENABLED",
	Origins:          "UNDERWRITE_CORS_ORIGINS",
	AllowedMethods:   "UNDERWRITE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "UNDERWRITE_CORS_ALLOWED_HEADERS",
	ExposedHeaders:   "UNDERWRITE_CORS_EXPOSED_HEADERS",
	AllowCredentials: "UNDERWRITE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "UNDERWRITE_CORS_MAX_AGE",
}

var openAPIEnv = &openapi.ConfigEnv{
	Title:       "UNDERWRITE_OPENAPI_TITLE",
	Description: "UNDERWRITE_OPENAPI_DESCRIPTION",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "UNDERWRITE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "UNDERWRITE_PAGINATION_MAX_PAGE_SIZE",
	MaxSearchLength: "UNDERWRITE_PAGINATION_MAX_SEARCH_LENGTH",
}

var rateLimitEnv = &middleware.RateLimitEnv{
	Enabled:           "UNDERWRITE_RATE_LIMIT_ENABLED",
	RequestsPerSecond: "UNDERWRITE_RATE_LIMIT_RPS",
	Burst:             "UNDERWRITE_RATE_LIMIT_BURST",
	IdleTTL:           "UNDERWRITE_RATE_LIMIT_IDLE_TTL",
}

// APIConfig holds routing, request limits, and the nested middleware and document configs.
type APIConfig struct {
	BasePath     string                     `toml:"base_path"`
	InternalPath string                     `toml:"internal_path"`
	MaxBodySize  string                     `toml:"max_body_size"`
	CORS         middleware.CORSConfig      `toml:"cors"`
	OpenAPI      openapi.Config             `toml:"openapi"`
	Pagination   pagination.Config          `toml:"pagination"`
	RateLimit    middleware.RateLimitConfig `toml:"rate_limit"`
}

// MaxBodySizeBytes returns MaxBodySize in bytes.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return 1024 * 1024
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.OpenAPI.Finalize(openAPIEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.RateLimit.Finalize(rateLimitEnv); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.InternalPath != "" {
		c.InternalPath = overlay.InternalPath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}

	c.CORS.Merge(&overlay.CORS)
	c.OpenAPI.Merge(&overlay.OpenAPI)
	c.Pagination.Merge(&overlay.Pagination)
	c.RateLimit.Merge(&overlay.RateLimit)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.InternalPath == "" {
		c.InternalPath = "/internal"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIInternalPath); v != "" {
		c.InternalPath = v
	}
	if v := os.Getenv(EnvAPIMaxBodySize); v != "" {
		c.MaxBodySize = v
	}
}

func (c *APIConfig) validate() error {
	if c.BasePath == c.InternalPath {
		return fmt.Errorf("base_path and internal_path must differ")
	}
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_body_size must be positive")
	}
	return nil
}
