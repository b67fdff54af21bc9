package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// ValuesAPI is the narrow slice of the Sheets API the lead repository
// needs: read a rectangular range, append a row, overwrite a row range.
type ValuesAPI interface {
	Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	Append(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error
	Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error
}

// Client implements ValuesAPI on top of the Google Sheets v4 service,
// authenticated as a service account.
type Client struct {
	svc *sheetsapi.Service
}

func NewClient(ctx context.Context, clientEmail, privateKey string) (*Client, error) {
	conf := &jwt.Config{
		Email:      clientEmail,
		PrivateKey: []byte(privateKey),
		Scopes:     []string{sheetsapi.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{svc: svc}, nil
}

func (c *Client) Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", readRange, err)
	}
	return resp.Values, nil
}

func (c *Client) Append(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error {
	_, err := c.svc.Spreadsheets.Values.
		Append(spreadsheetID, writeRange, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", writeRange, err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error {
	_, err := c.svc.Spreadsheets.Values.
		Update(spreadsheetID, writeRange, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}
	return nil
}
