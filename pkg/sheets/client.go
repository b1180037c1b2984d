package sheets

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"github.com/payboard/payboard-backend/pkg/config"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
)

// Client wraps the Sheets service for one spreadsheet. It is constructed once
// and injected; nothing in this package holds process-wide state.
type Client struct {
	svc           *sheetsv4.Service
	spreadsheetID string
	sheetIDs      map[string]int64
	logg          *logger.Logger
}

// NewClient authenticates with the service-account credential and resolves
// every tab title to its sheet id up front (DeleteDimension needs numeric ids).
func NewClient(ctx context.Context, cfg config.SheetsConfig, logg *logger.Logger) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}

	opts := []option.ClientOption{option.WithScopes(sheetsv4.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, errors.New("sheets credentials (json or file) are required")
	}

	svc, err := sheetsv4.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	meta, err := svc.Spreadsheets.Get(cfg.SpreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, asStoreError(err, "load spreadsheet metadata")
	}

	ids := make(map[string]int64, len(meta.Sheets))
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil {
			ids[sheet.Properties.Title] = sheet.Properties.SheetId
		}
	}

	if logg != nil {
		ctx = logg.WithField(ctx, "tabs", len(ids))
		logg.Info(ctx, "sheets client initialized")
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetIDs:      ids,
		logg:          logg,
	}, nil
}

func (c *Client) sheetID(table Table) (int64, error) {
	id, ok := c.sheetIDs[string(table)]
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("tab %q not present in spreadsheet", table))
	}
	return id, nil
}

// asStoreError classifies a Sheets API failure. Every transport, auth, and
// quota problem surfaces as a dependency error; callers treat empty results,
// not errors, as "not found".
func asStoreError(err error, op string) error {
	if err == nil {
		return nil
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op).
			WithDetails(map[string]any{"http_status": gErr.Code})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
