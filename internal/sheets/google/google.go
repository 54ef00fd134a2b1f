// Package google mirrors transactions into a Google Sheet: one row per
// transaction, the id in column A.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/sheets"
)

const (
	lastColumn      = "G"
	rowCacheSize    = 4096
	defaultCacheTTL = 10 * time.Minute
	// valueInput lets Sheets type numbers and dates the way a user would.
	valueInput = "USER_ENTERED"
)

// Config selects the spreadsheet and the credentials.
type Config struct {
	SpreadsheetID string
	SheetName     string
	// Exactly one of CredentialsJSON or CredentialsFile; when both are empty
	// GOOGLE_APPLICATION_CREDENTIALS is consulted.
	CredentialsJSON string
	CredentialsFile string
	RowCacheTTL     time.Duration
}

// Client implements sheets.TransactionMirror.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	// rows maps a transaction id to its 1-based row number.
	rows cache.Cache[int]

	mu       sync.Mutex
	sheetID  int64
	haveID   bool
	headerOK bool
	nowFunc  func() time.Time
	writeMux sync.Mutex
}

var _ sheets.TransactionMirror = (*Client)(nil)

// NewFromConfig authenticates with a service account and returns a client.
func NewFromConfig(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, cfg.SpreadsheetID, cfg.SheetName, cache.NewLRUCache[int](rowCacheSize, ttlOrDefault(cfg.RowCacheTTL))), nil
}

// New wraps an existing service. A nil rows gets the default row cache.
func New(svc *gsheet.Service, spreadsheetID, sheetName string, rows cache.Cache[int]) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Transactions"
	}
	if rows == nil {
		rows = cache.NewLRUCache[int](rowCacheSize, defaultCacheTTL)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rows:          rows,
		nowFunc:       time.Now,
		logger:        log.FromContext(context.Background()).WithComponent(log.ComponentSheets),
	}
}

func credentials(cfg Config) ([]byte, error) {
	if j := strings.TrimSpace(cfg.CredentialsJSON); j != "" {
		return []byte(j), nil
	}
	file := strings.TrimSpace(cfg.CredentialsFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func ttlOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultCacheTTL
	}
	return d
}

// UpsertTransaction overwrites the row holding tx.ID or appends a new one.
func (c *Client) UpsertTransaction(ctx context.Context, tx core.Transaction) error {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()

	row, found, err := c.findRow(ctx, tx.ID)
	if err != nil {
		return err
	}
	values := &gsheet.ValueRange{Values: [][]any{c.cells(tx)}}

	if found {
		rng := c.a1(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, values).
			ValueInputOption(valueInput).Context(ctx).Do()
		if err != nil {
			c.rows.Delete(idKey(tx.ID))
			return classify(fmt.Sprintf("update %s", rng), err)
		}
		c.logger.InfoContext(ctx, "Updated mirror row",
			log.FieldTransactionID, tx.ID, "row", row)
		return nil
	}

	if err := c.ensureHeader(ctx); err != nil {
		return err
	}
	rng := c.a1("A:" + lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, values).
		ValueInputOption(valueInput).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return classify(fmt.Sprintf("append %s", rng), err)
	}
	if resp.Updates != nil {
		if n, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			c.rows.Set(idKey(tx.ID), n)
			row = n
		}
	}
	c.logger.InfoContext(ctx, "Appended mirror row",
		log.FieldTransactionID, tx.ID, "row", row)
	return nil
}

// RemoveTransaction deletes the row holding id. Rows below shift up, so
// the whole row index is dropped afterwards.
func (c *Client) RemoveTransaction(ctx context.Context, id int64) error {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()

	row, found, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		c.logger.DebugContext(ctx, "No mirror row to remove", log.FieldTransactionID, id)
		return nil
	}
	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// sheet id and start index are legitimately zero
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	c.rows.Clear()
	if err != nil {
		return classify(fmt.Sprintf("delete row %d", row), err)
	}
	c.logger.InfoContext(ctx, "Removed mirror row", log.FieldTransactionID, id, "row", row)
	return nil
}

func (c *Client) cells(tx core.Transaction) []any {
	row := sheets.Row(tx)
	out := make([]any, 0, len(row)+1)
	for _, v := range row {
		out = append(out, v)
	}
	return append(out, c.nowFunc().UTC().Format(sheets.RowTimeLayout))
}

// findRow resolves id to a row number, scanning column A on a cache miss.
// A scan refreshes the index for every id it sees.
func (c *Client) findRow(ctx context.Context, id int64) (int, bool, error) {
	if row, ok := c.rows.Get(idKey(id)); ok {
		return row, true, nil
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return 0, false, err
	}
	row := 0
	for i, v := range ids {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		c.rows.Set(idKey(n), i+1)
		if n == id {
			row = i + 1
		}
	}
	return row, row > 0, nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := c.a1("A:A")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, classify(fmt.Sprintf("read %s", rng), err)
	}
	return firstColumn(resp.Values), nil
}

// ensureHeader writes the header row into an empty sheet. It checks once
// per client.
func (c *Client) ensureHeader(ctx context.Context) error {
	c.mu.Lock()
	done := c.headerOK
	c.mu.Unlock()
	if done {
		return nil
	}

	rng := c.a1("A1:" + lastColumn + "1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return classify(fmt.Sprintf("read %s", rng), err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		c.markHeader()
		return nil
	}
	header := make([]any, len(sheets.Header))
	for i, h := range sheets.Header {
		header[i] = h
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return classify(fmt.Sprintf("write header %s", rng), err)
	}
	c.markHeader()
	return nil
}

func (c *Client) markHeader() {
	c.mu.Lock()
	c.headerOK = true
	c.mu.Unlock()
}

// lookupSheetID finds the numeric id of the mirror tab, needed for row
// deletion.
func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.haveID {
		return c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, classify("get spreadsheet", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			c.sheetID, c.haveID = sh.Properties.SheetId, true
			return c.sheetID, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found: %w", c.sheetName, sheets.ErrRejected)
}

// a1 prefixes ref with the quoted sheet name.
func (c *Client) a1(ref string) string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'!" + ref
}

func idKey(id int64) string { return strconv.FormatInt(id, 10) }

// classify marks client errors other than throttling as rejected so the
// worker stops retrying them.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests, gerr.Code >= 500:
			return fmt.Errorf("%s: %w", op, err)
		case gerr.Code >= 400:
			return fmt.Errorf("%s: %w: %w", op, sheets.ErrRejected, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
