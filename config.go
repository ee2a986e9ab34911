package sheetrows

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Config represents configuration for the Client and the worksheets it opens
type Config struct {
	Logger    logrus.FieldLogger // Receives cache and mutation traces (default: discard)
	OmitRowID bool               // Do not annotate decoded rows with IDField
}

func (c *Config) logger() logrus.FieldLogger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
