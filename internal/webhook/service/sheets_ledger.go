package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "github.com/allisson/webhook-ledger/internal/errors"
	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

// SheetsLedger appends booking rows to a Google Sheets spreadsheet. The sheets
// client is built lazily on first append because the service account
// credentials live behind the secret source.
type SheetsLedger struct {
	secrets        secretGetter
	credentialsURL string
	spreadsheetID  string
	tab            string

	mu      sync.Mutex
	service *sheets.Service
}

// NewSheetsLedger creates a new SheetsLedger.
func NewSheetsLedger(secrets secretGetter, credentialsURL, spreadsheetID, tab string) *SheetsLedger {
	return &SheetsLedger{
		secrets:        secrets,
		credentialsURL: credentialsURL,
		spreadsheetID:  spreadsheetID,
		tab:            tab,
	}
}

// Append writes one row to the ledger tab.
func (l *SheetsLedger) Append(ctx context.Context, row domain.LedgerRow) error {
	service, err := l.sheetsService(ctx)
	if err != nil {
		return err
	}

	values := make([]any, 0, len(row.Values()))
	for _, value := range row.Values() {
		values = append(values, value)
	}

	writeRange := l.tab + "!A:N"
	valueRange := &sheets.ValueRange{Values: [][]any{values}}

	_, err = service.Spreadsheets.Values.Append(l.spreadsheetID, writeRange, valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return apperrors.Wrap(err, "failed to append ledger row")
	}
	return nil
}

func (l *SheetsLedger) sheetsService(ctx context.Context) (*sheets.Service, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.service != nil {
		return l.service, nil
	}

	rawCredentials, err := l.secrets.Get(ctx, l.credentialsURL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to resolve service account credentials")
	}

	credentials, err := google.CredentialsFromJSON(ctx, normalizeCredentialsJSON(rawCredentials), sheets.SpreadsheetsScope)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse service account credentials")
	}

	service, err := sheets.NewService(ctx, option.WithCredentials(credentials))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build sheets client")
	}

	l.service = service
	return service, nil
}

// normalizeCredentialsJSON repairs private keys whose newlines were
// double-escaped by the secret store.
func normalizeCredentialsJSON(raw string) []byte {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return []byte(raw)
	}

	key, ok := parsed["private_key"].(string)
	if !ok || !strings.Contains(key, `\n`) {
		return []byte(raw)
	}

	parsed["private_key"] = strings.ReplaceAll(key, `\n`, "\n")
	repaired, err := json.Marshal(parsed)
	if err != nil {
		return []byte(raw)
	}
	return repaired
}
