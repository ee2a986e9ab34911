package googlesheets

import (
	"time"

	sheetrows "github.com/ideamans/go-sheetrows"
	"github.com/sirupsen/logrus"
)

// Config represents configuration specific to Google Sheets adapter
type Config struct {
	MaxRetries    int                // Maximum number of retries for API calls (default: 3, negative disables)
	RetryInterval time.Duration      // Upper bound of the exponential backoff (default: 20s)
	Logger        logrus.FieldLogger // Receives retry warnings (default: logrus standard logger)
}

// DefaultConfig returns the recommended adapter configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		RetryInterval: 20 * time.Second,
		Logger:        logrus.StandardLogger(),
	}
}

// DefaultClientConfig returns the recommended default configuration for a
// sheetrows.Client on top of Google Sheets
func DefaultClientConfig() *sheetrows.Config {
	return &sheetrows.Config{
		Logger: logrus.StandardLogger(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = d.RetryInterval
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	return c
}
