package sheetrows

import (
	"context"
	"fmt"
)

// Client is the entry point: spreadsheet discovery plus worksheet sessions
type Client struct {
	config Config
	feed   Feed
}

// New creates a new Client on top of feed with the given configuration
func New(feed Feed, config *Config) *Client {
	// Use default config if not provided
	if config == nil {
		config = &Config{}
	}

	cfg := *config
	cfg.Logger = config.logger()

	return &Client{
		config: cfg,
		feed:   feed,
	}
}

// ListSpreadsheets lists the spreadsheets available to the feed's credentials
func (c *Client) ListSpreadsheets(ctx context.Context) ([]SheetInfo, error) {
	sheets, err := c.feed.ListSpreadsheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list spreadsheets: %w", ErrRemoteUnavailable, err)
	}
	return sheets, nil
}

// ListWorksheets lists the worksheets of a spreadsheet
func (c *Client) ListWorksheets(ctx context.Context, spreadsheetKey string) ([]SheetInfo, error) {
	sheets, err := c.feed.ListWorksheets(ctx, spreadsheetKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list worksheets: %w", ErrRemoteUnavailable, err)
	}
	return sheets, nil
}

// Worksheet opens a session without contacting the feed
func (c *Client) Worksheet(spreadsheetKey, worksheetKey string, opts ...WorksheetOption) *Worksheet {
	keys := WorksheetKeys{SpreadsheetKey: spreadsheetKey, WorksheetKey: worksheetKey}
	return NewWorksheet(c.feed, keys, &c.config, opts...)
}

// GetWorksheet opens a session after checking that the worksheet exists. The
// worksheet key may match either the key or the title of a worksheet.
func (c *Client) GetWorksheet(ctx context.Context, spreadsheetKey, worksheetKey string) (*Worksheet, error) {
	sheets, err := c.ListWorksheets(ctx, spreadsheetKey)
	if err != nil {
		return nil, err
	}

	for _, s := range sheets {
		if s.Key == worksheetKey || s.Title == worksheetKey {
			return c.Worksheet(spreadsheetKey, s.Key), nil
		}
	}
	return nil, fmt.Errorf("worksheet %q in spreadsheet %q: %w", worksheetKey, spreadsheetKey, ErrWorksheetNotFound)
}
