package storage

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/model"
)

var _ SeenLog = (*SheetsSeenLog)(nil)

// sheetsHeader is the column D header cell; it is never an entity id.
const sheetsHeader = "entityId"

// SheetsSeenLog stores the seen log as rows of name, address, date and
// entityId in columns A:D of one sheet.
type SheetsSeenLog struct {
	svc           *sheets.Service
	spreadsheetID string
	sheet         string
}

type SheetsOptions struct {
	CredentialsFile string
	SpreadsheetID   string
	Sheet           string
	// Endpoint overrides the API root and disables authentication.
	Endpoint string
}

func NewSheetsSeenLog(ctx context.Context, opts SheetsOptions) (*SheetsSeenLog, error) {
	var clientOpts []option.ClientOption
	switch {
	case opts.Endpoint != "":
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint), option.WithoutAuthentication())
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	clientOpts = append(clientOpts, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, apperr.Persistence("open sheets", err)
	}
	return &SheetsSeenLog{svc: svc, spreadsheetID: opts.SpreadsheetID, sheet: opts.Sheet}, nil
}

func (s *SheetsSeenLog) rng(cols string) string {
	return fmt.Sprintf("%s!%s", s.sheet, cols)
}

// SeenIDs reads the whole entityId column in a single request.
func (s *SheetsSeenLog) SeenIDs(ctx context.Context) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng("D:D")).Context(ctx).Do()
	if err != nil {
		return nil, apperr.Persistence("read seen log", err)
	}

	ids := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if id == "" || id == sheetsHeader {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *SheetsSeenLog) Append(ctx context.Context, e model.SeenEntry) error {
	vr := &sheets.ValueRange{
		Values: [][]interface{}{{e.Name, e.Address, e.Date, e.EntityID}},
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rng("A:D"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return apperr.Persistence("append seen log", err)
	}
	return nil
}
