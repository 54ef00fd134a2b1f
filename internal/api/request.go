package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

const (
	MsgNoData          = "No data provided"
	MsgMissingData     = "Missing data. Required: title, amount, category, type, date"
	MsgInvalidAmount   = "Amount must be a positive number"
	MsgInvalidType     = `Type must be "income" or "expense"`
	MsgInvalidDate     = "Invalid date format. Use ISO 8601 (e.g., 2023-10-26T14:30:00)"
	MsgNotFound        = "Transaction not found"
	MsgDeleted         = "Transaction deleted successfully"
	MsgInvalidID       = "Invalid transaction id"
	MsgTitleTooLong    = "Title must be at most 200 characters"
	MsgInternal        = "Internal server error"
	MsgRateLimited     = "Rate limit exceeded. Please try again later."
	maxRequestBodySize = 64 << 10
)

// errBadRequest carries the {"message"} text for a 400.
type errBadRequest struct{ message string }

func (e errBadRequest) Error() string { return e.message }

func badRequest(msg string) error { return errBadRequest{message: msg} }

// transactionPayload is the POST/PUT body. Every field is optional at this
// level; presence decides between create validation and partial update.
type transactionPayload struct {
	fields map[string]json.RawMessage
}

// decodePayload reads a JSON object. An empty or non-object body is
// "No data provided".
func decodePayload(r *http.Request) (transactionPayload, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		return transactionPayload{}, badRequest(MsgNoData)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &fields); err != nil || len(fields) == 0 {
		return transactionPayload{}, badRequest(MsgNoData)
	}
	return transactionPayload{fields: fields}, nil
}

func (p transactionPayload) has(key string) bool {
	raw, ok := p.fields[key]
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func (p transactionPayload) str(key string) (string, bool) {
	if !p.has(key) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(p.fields[key], &s); err != nil {
		return "", false
	}
	return s, true
}

// truthy mirrors a presence check: missing, null, "", 0 and false all count
// as absent.
func (p transactionPayload) truthy(key string) bool {
	if !p.has(key) {
		return false
	}
	raw := bytes.TrimSpace(p.fields[key])
	switch {
	case bytes.Equal(raw, []byte(`""`)), bytes.Equal(raw, []byte("false")):
		return false
	case len(raw) > 0 && (raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')):
		d, err := decimal.NewFromString(string(raw))
		return err != nil || !d.IsZero()
	}
	return true
}

// amount accepts only a JSON number greater than zero.
func (p transactionPayload) amount() (core.Money, error) {
	raw := bytes.TrimSpace(p.fields["amount"])
	if len(raw) == 0 || raw[0] == '"' {
		return core.Money{}, badRequest(MsgInvalidAmount)
	}
	var m core.Money
	if err := json.Unmarshal(raw, &m); err != nil {
		return core.Money{}, badRequest(MsgInvalidAmount)
	}
	return m, nil
}

func (p transactionPayload) txType() (core.TransactionType, error) {
	s, ok := p.str("type")
	t := core.TransactionType(s)
	if !ok || !t.Valid() {
		return "", badRequest(MsgInvalidType)
	}
	return t, nil
}

func (p transactionPayload) date() (time.Time, error) {
	s, ok := p.str("date")
	if !ok {
		return time.Time{}, badRequest(MsgInvalidDate)
	}
	t, err := core.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, badRequest(MsgInvalidDate)
	}
	return t, nil
}

// createDraft validates a POST body. Checks run in a fixed order so the
// first failing rule picks the message.
func (p transactionPayload) createDraft() (core.Draft, error) {
	for _, key := range []string{"title", "amount", "category", "type", "date"} {
		if !p.truthy(key) {
			return core.Draft{}, badRequest(MsgMissingData)
		}
	}
	title, ok := p.str("title")
	if !ok || strings.TrimSpace(title) == "" {
		return core.Draft{}, badRequest(MsgMissingData)
	}
	category, ok := p.str("category")
	if !ok || strings.TrimSpace(category) == "" {
		return core.Draft{}, badRequest(MsgMissingData)
	}
	amount, err := p.amount()
	if err != nil {
		return core.Draft{}, err
	}
	typ, err := p.txType()
	if err != nil {
		return core.Draft{}, err
	}
	date, err := p.date()
	if err != nil {
		return core.Draft{}, err
	}
	d := core.Draft{
		Title:    strings.TrimSpace(title),
		Amount:   amount,
		Category: strings.TrimSpace(category),
		Type:     typ,
		Date:     date,
	}
	return d, validateDraft(d)
}

// mergeInto applies a PUT body over the stored transaction. Absent fields
// keep their current value.
func (p transactionPayload) mergeInto(current core.Transaction) (core.Draft, error) {
	d := current.Draft()
	if p.has("title") {
		s, _ := p.str("title")
		d.Title = strings.TrimSpace(s)
	}
	if p.has("category") {
		s, _ := p.str("category")
		d.Category = strings.TrimSpace(s)
	}
	if p.has("date") {
		date, err := p.date()
		if err != nil {
			return core.Draft{}, err
		}
		d.Date = date
	}
	if p.has("amount") {
		m, err := p.amount()
		if err != nil {
			return core.Draft{}, err
		}
		d.Amount = m
	}
	if p.has("type") {
		t, err := p.txType()
		if err != nil {
			return core.Draft{}, err
		}
		d.Type = t
	}
	return d, validateDraft(d)
}

// validateDraft maps domain validation onto response messages.
func validateDraft(d core.Draft) error {
	err := d.Validate()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrEmptyTitle), errors.Is(err, core.ErrEmptyCategory):
		return badRequest(MsgMissingData)
	case errors.Is(err, core.ErrInvalidAmount):
		return badRequest(MsgInvalidAmount)
	case errors.Is(err, core.ErrInvalidType):
		return badRequest(MsgInvalidType)
	case errors.Is(err, core.ErrInvalidDate):
		return badRequest(MsgInvalidDate)
	default:
		return badRequest(MsgTitleTooLong)
	}
}
