// Package ledger is the durable, uniqueness-enforcing store of bills.
//
// A bill enters the ledger through Admit, which validates the candidate data,
// rejects duplicate ids, renders the bill's QR code, computes the total and
// persists the whole store before the bill becomes visible to readers. Bills
// are immutable once admitted; there is no update or delete.
//
// Concurrency:
//   - Admit calls are serialized end to end, so two admissions of the same id
//     can never both succeed.
//   - Lookup and Report only take a read lock around the in-memory state and
//     never wait for an in-flight encode or persist.
//   - Readers never observe a bill whose persist has not completed.
//   - Each stored bill owns its artifact file. A path already referenced by a
//     stored bill gets a numeric suffix instead of being overwritten.
package ledger

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billbook/internal/billcode"
	"billbook/internal/validation"
	"billbook/pkg/models"
)

// Store is the durable backing of the ledger.
type Store interface {
	// Load returns all stored bills in insertion order. A store that does
	// not exist yet returns (nil, nil). Malformed data must be reported with
	// an error wrapping ErrStoreCorrupt.
	Load(ctx context.Context) ([]models.Bill, error)

	// Save persists the full ordered set of bills.
	Save(ctx context.Context, bills []models.Bill) error
}

// CodeEncoder renders the scannable artifact for a bill.
type CodeEncoder interface {
	// ArtifactPath returns the preferred location of the bill's artifact.
	ArtifactPath(bill models.Bill) string
	// EncodeTo renders the bill to path.
	EncodeTo(bill models.Bill, path string) (billcode.Artifact, error)
	Remove(path string) error
}

// totalTolerance bounds the relative difference accepted between a stored
// total and the recomputed one. Ledgers written with binary floats carry
// totals like 0.30000000000000004.
var totalTolerance = decimal.New(1, -9)

// Admission results reported to the Recorder.
const (
	ResultAdmitted          = "admitted"
	ResultInvalid           = "invalid"
	ResultDuplicate         = "duplicate"
	ResultEncodingFailed    = "encoding_failed"
	ResultPersistenceFailed = "persistence_failed"
)

// Recorder receives ledger measurements.
type Recorder interface {
	ObserveAdmission(result string)
	ObserveEncode(d time.Duration)
	SetStored(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAdmission(string)     {}
func (nopRecorder) ObserveEncode(time.Duration) {}
func (nopRecorder) SetStored(int)               {}

// Option configures the ledger.
type Option func(*Ledger)

// WithClock overrides the source of admission timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithLogger sets the ledger logger. The default discards all output.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) {
		l.log = log
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(l *Ledger) {
		if rec != nil {
			l.rec = rec
		}
	}
}

type Ledger struct {
	store   Store
	encoder CodeEncoder
	clock   func() time.Time
	log     zerolog.Logger
	rec     Recorder

	// admitMu serializes Admit from duplicate check to publish.
	admitMu sync.Mutex

	// mu guards bills and index. bills is append-only.
	mu    sync.RWMutex
	bills []models.Bill
	index map[string]int

	// refs holds the cleaned artifact paths of stored bills. Guarded by
	// admitMu once New returns.
	refs map[string]struct{}
}

// New loads the durable store and returns a ledger over it. A missing store
// yields an empty ledger; a malformed one fails with ErrStoreCorrupt and no
// partial recovery is attempted.
func New(ctx context.Context, store Store, encoder CodeEncoder, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger: nil store")
	}
	if encoder == nil {
		return nil, errors.New("ledger: nil encoder")
	}

	l := &Ledger{
		store:   store,
		encoder: encoder,
		clock:   time.Now,
		log:     zerolog.Nop(),
		rec:     nopRecorder{},
		index:   make(map[string]int),
		refs:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	bills, err := store.Load(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("Failed to load ledger store")
		return nil, loadError(err)
	}
	if err := l.restore(bills); err != nil {
		l.log.Error().Err(err).Msg("Ledger store failed schema checks")
		return nil, loadError(err)
	}

	l.rec.SetStored(len(l.bills))
	l.log.Info().Int("bills", len(l.bills)).Msg("Ledger loaded")

	return l, nil
}

// restore admits previously persisted bills after checking the invariants a
// fresh admission would have enforced.
func (l *Ledger) restore(bills []models.Bill) error {
	for i, bill := range bills {
		if err := validation.Validate(bill.CustomerName, bill.ID, bill.Items); err != nil {
			return Corrupt("bill %d (%q): %v", i, bill.ID, err)
		}
		if _, dup := l.index[bill.ID]; dup {
			return Corrupt("bill id %q stored more than once", bill.ID)
		}
		want := models.ComputeTotal(bill.Items)
		if !totalsAgree(bill.TotalAmount, want) {
			return Corrupt("bill %q total %s does not match items total %s", bill.ID, bill.TotalAmount, want)
		}
		if bill.CreatedAt.IsZero() {
			return Corrupt("bill %q has no creation time", bill.ID)
		}

		restored := bill.Clone()
		restored.TotalAmount = want
		l.index[bill.ID] = len(l.bills)
		l.bills = append(l.bills, restored)
		if restored.CodeArtifactRef != "" {
			l.refs[filepath.Clean(restored.CodeArtifactRef)] = struct{}{}
		}
	}
	return nil
}

// totalsAgree reports whether a stored total matches the recomputed one up
// to float rounding.
func totalsAgree(stored, want decimal.Decimal) bool {
	if stored.Equal(want) {
		return true
	}
	scale := want.Abs()
	if scale.LessThan(decimal.NewFromInt(1)) {
		scale = decimal.NewFromInt(1)
	}
	return stored.Sub(want).Abs().LessThanOrEqual(totalTolerance.Mul(scale))
}

// uniquePath returns path, or path with a numeric suffix before the
// extension when a stored bill already references it. Caller holds admitMu.
func (l *Ledger) uniquePath(path string) string {
	if _, taken := l.refs[filepath.Clean(path)]; !taken {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 2; ; n++ {
		candidate := stem + "_" + strconv.Itoa(n) + ext
		if _, taken := l.refs[filepath.Clean(candidate)]; !taken {
			return candidate
		}
	}
}

// Admit validates, encodes and persists a new bill. See the package
// documentation for the ordering and atomicity guarantees.
func (l *Ledger) Admit(ctx context.Context, id, customerName string, items []models.Item) (models.Bill, error) {
	const op = "Admit"

	if err := validation.Validate(customerName, id, items); err != nil {
		l.rec.ObserveAdmission(ResultInvalid)
		l.log.Debug().Err(err).Str("bill_id", id).Msg("Bill rejected by validation")
		return models.Bill{}, err
	}

	l.admitMu.Lock()
	defer l.admitMu.Unlock()

	if _, exists := l.Lookup(id); exists {
		l.rec.ObserveAdmission(ResultDuplicate)
		l.log.Warn().Str("bill_id", id).Msg("Duplicate bill id rejected")
		return models.Bill{}, &DuplicateIDError{ID: id}
	}

	bill := models.Bill{
		ID:           id,
		CustomerName: customerName,
		Items:        append([]models.Item(nil), items...),
	}

	path := l.uniquePath(l.encoder.ArtifactPath(bill))

	start := time.Now()
	artifact, err := l.encoder.EncodeTo(bill, path)
	l.rec.ObserveEncode(time.Since(start))
	if err != nil {
		l.rec.ObserveAdmission(ResultEncodingFailed)
		l.log.Error().Err(err).Str("bill_id", id).Msg("Failed to encode bill")
		return models.Bill{}, err
	}

	bill.TotalAmount = models.ComputeTotal(bill.Items)
	bill.CreatedAt = l.clock().UTC()
	bill.CodeArtifactRef = artifact.Path

	l.mu.RLock()
	next := make([]models.Bill, len(l.bills), len(l.bills)+1)
	copy(next, l.bills)
	l.mu.RUnlock()
	next = append(next, bill)

	if err := l.store.Save(ctx, next); err != nil {
		l.rec.ObserveAdmission(ResultPersistenceFailed)
		l.log.Error().Err(err).Str("bill_id", id).Msg("Failed to persist ledger, bill not admitted")
		l.discardArtifact(artifact.Path)
		return models.Bill{}, persistenceError(op, err)
	}

	l.mu.Lock()
	l.index[bill.ID] = len(l.bills)
	l.bills = append(l.bills, bill)
	stored := len(l.bills)
	l.mu.Unlock()
	l.refs[filepath.Clean(bill.CodeArtifactRef)] = struct{}{}

	l.rec.ObserveAdmission(ResultAdmitted)
	l.rec.SetStored(stored)
	l.log.Info().
		Str("bill_id", bill.ID).
		Str("customer", bill.CustomerName).
		Int("items", len(bill.Items)).
		Str("total", models.FormatAmount(bill.TotalAmount)).
		Str("qr_code", bill.CodeArtifactRef).
		Int("qr_version", artifact.Version).
		Msg("Bill admitted")

	return bill.Clone(), nil
}

// discardArtifact removes the image of a bill that failed to persist. The
// path was chosen by uniquePath, so no stored bill references it.
func (l *Ledger) discardArtifact(path string) {
	if err := l.encoder.Remove(path); err != nil {
		l.log.Warn().Err(err).Str("path", path).Msg("Failed to remove orphaned QR code")
	}
}

// Lookup returns the bill stored under id. Absence is reported by the boolean.
func (l *Ledger) Lookup(id string) (models.Bill, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[id]
	if !ok {
		return models.Bill{}, false
	}
	return l.bills[i].Clone(), true
}

// Report returns the summary rows of all bills stored at call time, in
// insertion order. The sequence can be ranged over any number of times.
func (l *Ledger) Report() iter.Seq[models.ReportRow] {
	l.mu.RLock()
	snapshot := l.bills[:len(l.bills):len(l.bills)]
	l.mu.RUnlock()

	return func(yield func(models.ReportRow) bool) {
		for _, bill := range snapshot {
			if !yield(bill.Row()) {
				return
			}
		}
	}
}

// Len returns the number of stored bills.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.bills)
}
