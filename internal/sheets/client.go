package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// Client wraps the Google Sheets API for the worksheets this service reads
// and appends: the wallet registry, the category rules, the off-chain
// balances and the two append-only snapshot logs.
type Client struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewClient creates a Client authenticated with a service account JSON.
func NewClient(ctx context.Context, spreadsheetID, credentialsJSON string) (*Client, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &Client{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// ReadRange returns all rows of the given A1 range as strings. Missing
// trailing cells come back as empty strings so callers can index columns
// without bounds checks.
func (c *Client) ReadRange(ctx context.Context, a1Range string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, a1Range).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading range %s: %w", a1Range, err)
	}

	width := 0
	for _, row := range resp.Values {
		if len(row) > width {
			width = len(row)
		}
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, width)
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadColumn returns the non-empty values of the first column of a worksheet.
func (c *Client) ReadColumn(ctx context.Context, worksheet string) ([]string, error) {
	rows, err := c.ReadRange(ctx, worksheet+"!A:A")
	if err != nil {
		return nil, err
	}
	var values []string
	for _, row := range rows {
		if len(row) > 0 && row[0] != "" {
			values = append(values, row[0])
		}
	}
	return values, nil
}

// LastRow returns the final row of a worksheet, or nil if the sheet holds at
// most a header row.
func (c *Client) LastRow(ctx context.Context, worksheet string) ([]string, error) {
	rows, err := c.ReadRange(ctx, worksheet+"!A:G")
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}
	return rows[len(rows)-1], nil
}

// Append appends rows to the end of a worksheet with raw (unparsed) values.
func (c *Client) Append(ctx context.Context, worksheet string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := c.svc.Spreadsheets.Values.Append(
		c.spreadsheetID,
		worksheet+"!A1",
		&sheets.ValueRange{Values: rows},
	).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending to %s: %w", worksheet, err)
	}
	return nil
}

// EnsureSheet creates the named worksheet with a header row if it does not
// already exist.
func (c *Client) EnsureSheet(ctx context.Context, name string, header []any) error {
	spreadsheet, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	for _, s := range spreadsheet.Sheets {
		if s.Properties.Title == name {
			return nil
		}
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(
		c.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			}},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}

	return c.Append(ctx, name, [][]any{header})
}
