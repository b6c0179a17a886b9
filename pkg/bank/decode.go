package bank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// The history service and its older revisions disagree on envelope and field
// naming, so decoding probes a fixed list of candidates in a fixed order
// instead of relying on a single struct shape.

// listKeys is the envelope probe order for the transaction array.
var listKeys = []string{"transactions", "data", "rows", "result"}

// timestampLayouts is the probe order for timestamp parsing.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// DecodeHistory parses a transaction-history payload into the canonical
// History shape. The payload may be a bare JSON array of transactions or an
// object wrapping the array under one of the known envelope keys.
func DecodeHistory(accountID string, raw []byte) (*History, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("bank: decode history: %w", err)
	}

	var items []interface{}
	switch v := payload.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		found := false
		for _, key := range listKeys {
			if arr, ok := v[key].([]interface{}); ok {
				items = arr
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("bank: decode history: no transaction list under any of %v", listKeys)
		}
	default:
		return nil, fmt.Errorf("bank: decode history: unexpected payload type %T", payload)
	}

	h := &History{AccountID: accountID, Transactions: make([]Transaction, 0, len(items))}
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("bank: decode history: record %d is not an object", i)
		}
		tx, err := decodeTransaction(obj)
		if err != nil {
			return nil, fmt.Errorf("bank: decode history: record %d: %w", i, err)
		}
		h.Transactions = append(h.Transactions, tx)
	}
	h.TotalCount = len(h.Transactions)
	return h, nil
}

func decodeTransaction(obj map[string]interface{}) (Transaction, error) {
	var tx Transaction

	tx.ID = stringField(obj, "transaction_id", "transactionId", "id")
	tx.FromAccount = stringField(obj, "from_account", "fromAccountNum", "from_acct")
	tx.ToAccount = stringField(obj, "to_account", "toAccountNum", "to_acct")

	amount, ok := firstField(obj, "amount", "amount_cents")
	if !ok {
		return tx, fmt.Errorf("missing amount")
	}
	cents, err := toCents(amount)
	if err != nil {
		return tx, err
	}
	tx.AmountCents = cents

	if ts := stringField(obj, "timestamp", "created_at"); ts != "" {
		parsed, err := parseTimestamp(ts)
		if err != nil {
			return tx, err
		}
		tx.Timestamp = parsed
	}

	tx.Status = stringField(obj, "status")
	if tx.Status == "" {
		tx.Status = "COMPLETED"
	}
	return tx, nil
}

// toCents normalizes an amount value to integer minor units. Integer values
// are already cents; values with a fractional part are decimal currency and
// get converted here, at the one sanctioned conversion boundary.
func toCents(v interface{}) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		s := n.String()
		if !strings.ContainsAny(s, ".eE") {
			return strconv.ParseInt(s, 10, 64)
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		return int64(math.Round(f * 100)), nil
	case string:
		if !strings.Contains(n, ".") {
			return strconv.ParseInt(n, 10, 64)
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", n, err)
		}
		return int64(math.Round(f * 100)), nil
	default:
		return 0, fmt.Errorf("unexpected amount type %T", v)
	}
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func stringField(obj map[string]interface{}, keys ...string) string {
	v, ok := firstField(obj, keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func firstField(obj map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, key := range keys {
		if v, ok := obj[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
