package excel

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Config holds configuration for Excel adapter
type Config struct {
	Dir    string             // Directory holding the workbooks; each *.xlsx is a spreadsheet
	Logger logrus.FieldLogger // Receives layout changes (default: logrus standard logger)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Dir == "" {
		return ErrMissingDir
	}
	info, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMissingDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrMissingDir, c.Dir)
	}
	return nil
}
