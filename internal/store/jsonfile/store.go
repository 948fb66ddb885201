// Package jsonfile persists the ledger as a single JSON document keyed by bill
// id. Keys appear in insertion order and amounts are written from their exact
// decimal text.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billbook/internal/ledger"
	"billbook/internal/logger"
	"billbook/pkg/models"
)

// legacyTimeLayout matches timestamps written without a zone offset. They are
// read as UTC.
const legacyTimeLayout = "2006-01-02T15:04:05.999999999"

type Store struct {
	path string
	log  zerolog.Logger
}

// New returns a store backed by the file at path. The file is not touched
// until Load or Save is called.
func New(path string) *Store {
	return &Store{
		path: path,
		log:  logger.WithComponent("jsonfile"),
	}
}

type fileItem struct {
	Name     *string      `json:"name"`
	Price    *json.Number `json:"price"`
	Quantity *int64       `json:"quantity"`
}

type fileBill struct {
	CustomerName *string      `json:"customer_name"`
	TotalAmount  *json.Number `json:"total_amount"`
	Timestamp    *string      `json:"timestamp"`
	QRCodePath   *string      `json:"qr_code_path"`
	Items        *[]fileItem  `json:"items"`
}

// Load reads all bills in file order. A missing file is an empty ledger.
func (s *Store) Load(ctx context.Context) ([]models.Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Debug().Str("path", s.path).Msg("Store file does not exist, starting empty")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	bills, err := decode(data)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("path", s.path).Int("bills", len(bills)).Msg("Store file loaded")
	return bills, nil
}

// Save replaces the file with the given bills. Readers of the file observe
// either the previous or the new content.
func (s *Store) Save(ctx context.Context, bills []models.Bill) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(bills)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}

	s.log.Debug().Str("path", s.path).Int("bills", len(bills)).Msg("Store file written")
	return nil
}

func encode(bills []models.Bill) ([]byte, error) {
	var buf bytes.Buffer

	if len(bills) == 0 {
		buf.WriteString("{}\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("{\n")
	for i, bill := range bills {
		key, err := json.Marshal(bill.ID)
		if err != nil {
			return nil, err
		}
		body, err := json.MarshalIndent(toFile(bill), "    ", "    ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode bill %q: %w", bill.ID, err)
		}

		buf.WriteString("    ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(body)
		if i < len(bills)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")

	return buf.Bytes(), nil
}

func toFile(bill models.Bill) fileBill {
	items := make([]fileItem, len(bill.Items))
	for i, it := range bill.Items {
		items[i] = fileItem{
			Name:     &it.Name,
			Price:    number(it.UnitPrice),
			Quantity: &it.Quantity,
		}
	}

	ts := bill.CreatedAt.UTC().Format(time.RFC3339Nano)
	return fileBill{
		CustomerName: &bill.CustomerName,
		TotalAmount:  number(bill.TotalAmount),
		Timestamp:    &ts,
		QRCodePath:   &bill.CodeArtifactRef,
		Items:        &items,
	}
}

func number(d decimal.Decimal) *json.Number {
	n := json.Number(models.FormatAmount(d))
	return &n
}

// decode walks the top-level object token by token so bill order survives.
func decode(data []byte) ([]models.Bill, error) {
	if err := checkDuplicateKeys(data); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	tok, err := dec.Token()
	if err != nil {
		return nil, ledger.Corrupt("invalid JSON: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ledger.Corrupt("top level must be an object keyed by bill id")
	}

	var bills []models.Bill

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, ledger.Corrupt("invalid JSON: %v", err)
		}
		id, ok := tok.(string)
		if !ok {
			return nil, ledger.Corrupt("expected bill id, got %v", tok)
		}
		var fb fileBill
		if err := dec.Decode(&fb); err != nil {
			return nil, ledger.Corrupt("bill %q: %v", id, err)
		}
		bill, err := fromFile(id, fb)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}

	if _, err := dec.Token(); err != nil {
		return nil, ledger.Corrupt("invalid JSON: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ledger.Corrupt("unexpected data after the bill object")
	}

	return bills, nil
}

// checkDuplicateKeys fails on the first key that appears twice within one
// object, at any depth. encoding/json would silently keep the last value.
func checkDuplicateKeys(data []byte) error {
	type frame struct {
		keys    map[string]struct{} // nil for arrays
		wantKey bool
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var stack []*frame
	var path []string

	valueDone := func() {
		if n := len(stack); n > 0 && stack[n-1].keys != nil {
			stack[n-1].wantKey = true
			path = path[:len(path)-1]
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return ledger.Corrupt("invalid JSON: %v", err)
		}

		if n := len(stack); n > 0 && stack[n-1].wantKey {
			if key, ok := tok.(string); ok {
				top := stack[n-1]
				if _, dup := top.keys[key]; dup {
					if n == 1 {
						return ledger.Corrupt("bill id %q appears more than once", key)
					}
					return ledger.Corrupt("bill %q: key %q appears more than once", path[0], key)
				}
				top.keys[key] = struct{}{}
				top.wantKey = false
				path = append(path, key)
				continue
			}
		}

		switch tok {
		case json.Delim('{'):
			stack = append(stack, &frame{keys: make(map[string]struct{}), wantKey: true})
		case json.Delim('['):
			stack = append(stack, &frame{})
		case json.Delim('}'), json.Delim(']'):
			stack = stack[:len(stack)-1]
			valueDone()
		default:
			valueDone()
		}
	}
}

func fromFile(id string, fb fileBill) (models.Bill, error) {
	switch {
	case fb.CustomerName == nil:
		return models.Bill{}, ledger.Corrupt("bill %q: missing customer_name", id)
	case fb.TotalAmount == nil:
		return models.Bill{}, ledger.Corrupt("bill %q: missing total_amount", id)
	case fb.Timestamp == nil:
		return models.Bill{}, ledger.Corrupt("bill %q: missing timestamp", id)
	case fb.QRCodePath == nil:
		return models.Bill{}, ledger.Corrupt("bill %q: missing qr_code_path", id)
	case fb.Items == nil:
		return models.Bill{}, ledger.Corrupt("bill %q: missing items", id)
	}

	total, err := decimal.NewFromString(fb.TotalAmount.String())
	if err != nil {
		return models.Bill{}, ledger.Corrupt("bill %q: total_amount: %v", id, err)
	}
	createdAt, err := parseTimestamp(*fb.Timestamp)
	if err != nil {
		return models.Bill{}, ledger.Corrupt("bill %q: timestamp: %v", id, err)
	}

	items := make([]models.Item, 0, len(*fb.Items))
	for i, fi := range *fb.Items {
		if fi.Name == nil || fi.Price == nil || fi.Quantity == nil {
			return models.Bill{}, ledger.Corrupt("bill %q: item %d must have name, price and quantity", id, i)
		}
		price, err := decimal.NewFromString(fi.Price.String())
		if err != nil {
			return models.Bill{}, ledger.Corrupt("bill %q: item %d price: %v", id, i, err)
		}
		items = append(items, models.Item{
			Name:      *fi.Name,
			UnitPrice: price,
			Quantity:  *fi.Quantity,
		})
	}

	return models.Bill{
		ID:              id,
		CustomerName:    *fb.CustomerName,
		Items:           items,
		TotalAmount:     total,
		CreatedAt:       createdAt,
		CodeArtifactRef: *fb.QRCodePath,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(legacyTimeLayout, s)
}
