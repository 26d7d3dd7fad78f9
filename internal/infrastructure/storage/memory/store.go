// Package memory is an in-process implementation of every repository and of
// tx.Manager. It backs the server when no DATABASE_URL is configured and the
// service tests.
//
// A single mutex serializes transactions: a transaction holds it from start to
// commit, so row locks are implied, and a failed transaction restores the
// snapshot taken when it began.
package memory

import (
	"bytes"
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"sigfarma/internal/core/entity"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/numerator"
	"sigfarma/internal/core/tx"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/audit"
	"sigfarma/internal/domain/catalogs/product"
	"sigfarma/internal/domain/catalogs/supplier"
	"sigfarma/internal/domain/documents/adjustment"
	"sigfarma/internal/domain/documents/receiving"
	"sigfarma/internal/domain/documents/sale"
	"sigfarma/internal/domain/documents/sale_return"
	"sigfarma/internal/domain/events"
	"sigfarma/internal/domain/ledger"
)

// Store holds all rows. Rows are kept by value and handed out as copies.
type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	products   map[id.ID]product.Product
	suppliers  map[id.ID]supplier.Supplier
	batches    map[id.ID]ledger.Batch
	aggregates map[id.ID]ledger.Aggregate

	sales           map[id.ID]sale.Sale
	saleLines       map[id.ID][]sale.Line
	returns         map[id.ID]sale_return.Return
	returnLines     map[id.ID][]sale_return.Line
	adjustments     map[id.ID]adjustment.Adjustment
	adjustmentLines map[id.ID][]adjustment.Line
	receivings      map[id.ID]receiving.Record
	receivingLines  map[id.ID][]receiving.Line

	sequences map[string]int64
	outbox    []events.Message
	audit     []audit.Entry
}

var (
	_ tx.ReadOnlyManager  = (*Store)(nil)
	_ events.Publisher    = (*Store)(nil)
	_ audit.Recorder      = (*Store)(nil)
	_ audit.Reader        = (*Store)(nil)
	_ numerator.Generator = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{st: &state{
		products:        make(map[id.ID]product.Product),
		suppliers:       make(map[id.ID]supplier.Supplier),
		batches:         make(map[id.ID]ledger.Batch),
		aggregates:      make(map[id.ID]ledger.Aggregate),
		sales:           make(map[id.ID]sale.Sale),
		saleLines:       make(map[id.ID][]sale.Line),
		returns:         make(map[id.ID]sale_return.Return),
		returnLines:     make(map[id.ID][]sale_return.Line),
		adjustments:     make(map[id.ID]adjustment.Adjustment),
		adjustmentLines: make(map[id.ID][]adjustment.Line),
		receivings:      make(map[id.ID]receiving.Record),
		receivingLines:  make(map[id.ID][]receiving.Line),
		sequences:       make(map[string]int64),
	}}
}

func (st *state) clone() *state {
	return &state{
		products:        cloneMap(st.products),
		suppliers:       cloneMap(st.suppliers),
		batches:         cloneMap(st.batches),
		aggregates:      cloneMap(st.aggregates),
		sales:           cloneMap(st.sales),
		saleLines:       cloneLines(st.saleLines),
		returns:         cloneMap(st.returns),
		returnLines:     cloneLines(st.returnLines),
		adjustments:     cloneMap(st.adjustments),
		adjustmentLines: cloneLines(st.adjustmentLines),
		receivings:      cloneMap(st.receivings),
		receivingLines:  cloneLines(st.receivingLines),
		sequences:       maps.Clone(st.sequences),
		outbox:          append([]events.Message(nil), st.outbox...),
		audit:           append([]audit.Entry(nil), st.audit...),
	}
}

func cloneMap[V any](m map[id.ID]V) map[id.ID]V {
	out := make(map[id.ID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneLines[L any](m map[id.ID][]L) map[id.ID][]L {
	out := make(map[id.ID][]L, len(m))
	for k, v := range m {
		out[k] = append([]L(nil), v...)
	}
	return out
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// RunInTransaction implements tx.Manager. Nested calls join the running transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

// do runs fn against the current state, taking the store lock unless ctx
// already belongs to a transaction of this store.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.st)
}

// --- Numbering ---

// GetNextNumber implements numerator.Generator. Counters live in the store
// state, so a rolled back document gives its number back under either strategy.
func (s *Store) GetNextNumber(ctx context.Context, cfg numerator.Config, _ *numerator.Options, period time.Time) (string, error) {
	var num int64
	_ = s.do(ctx, func(st *state) error {
		key := numerator.SequenceKey(cfg, period)
		st.sequences[key]++
		num = st.sequences[key]
		return nil
	})
	return numerator.Format(cfg, period, num), nil
}

// SetNextNumber implements numerator.Generator.
func (s *Store) SetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time, value int64) error {
	return s.do(ctx, func(st *state) error {
		st.sequences[numerator.SequenceKey(cfg, period)] = value
		return nil
	})
}

// --- Outbox & audit ---

// Publish implements events.Publisher. The message is rolled back with the transaction.
func (s *Store) Publish(ctx context.Context, event events.Event) error {
	msg, err := events.NewMessage(event)
	if err != nil {
		return err
	}
	return s.do(ctx, func(st *state) error {
		st.outbox = append(st.outbox, *msg)
		return nil
	})
}

// Outbox returns the stored messages in publication order.
func (s *Store) Outbox(ctx context.Context) []events.Message {
	var out []events.Message
	_ = s.do(ctx, func(st *state) error {
		out = append(out, st.outbox...)
		return nil
	})
	return out
}

// Relay hands every stored message to h and forgets the delivered ones.
// It stops at the first failure so ordering is kept.
func (s *Store) Relay(ctx context.Context, h events.Handler) (int, error) {
	pending := s.Outbox(ctx)
	delivered := 0
	var handleErr error
	for i := range pending {
		if handleErr = h.Handle(ctx, &pending[i]); handleErr != nil {
			break
		}
		delivered++
	}
	if delivered > 0 {
		_ = s.do(ctx, func(st *state) error {
			st.outbox = st.outbox[delivered:]
			return nil
		})
	}
	return delivered, handleErr
}

// Record implements audit.Recorder.
func (s *Store) Record(ctx context.Context, entry audit.Entry) error {
	return s.do(ctx, func(st *state) error {
		st.audit = append(st.audit, entry)
		return nil
	})
}

// History implements audit.Reader.
func (s *Store) History(ctx context.Context, entityID id.ID, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	out := make([]audit.Entry, 0)
	err := s.do(ctx, func(st *state) error {
		for i := len(st.audit) - 1; i >= 0 && len(out) < limit; i-- {
			if st.audit[i].EntityID == entityID {
				out = append(out, st.audit[i])
			}
		}
		return nil
	})
	return out, err
}

// --- list helpers ---

// listDocuments filters, orders and pages document headers.
func listDocuments[T any](items []*T, f domain.ListFilter, doc func(*T) *entity.Document) domain.ListResult[*T] {
	kept := items[:0]
	for _, it := range items {
		d := doc(it)
		if f.DateFrom != nil && d.Date.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && d.Date.After(*f.DateTo) {
			continue
		}
		kept = append(kept, it)
	}

	desc := len(f.OrderBy) > 0 && f.OrderBy[0] == '-'
	field := f.OrderBy
	if desc {
		field = field[1:]
	}
	sort.SliceStable(kept, func(i, j int) bool {
		c := compareDocuments(doc(kept[i]), doc(kept[j]), field)
		if desc {
			return c > 0
		}
		return c < 0
	})

	return domain.ListResult[*T]{
		Items:      page(kept, f.Limit, f.Offset),
		TotalCount: int64(len(kept)),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
}

func compareDocuments(a, b *entity.Document, field string) int {
	switch field {
	case "number":
		if c := strings.Compare(a.Number, b.Number); c != 0 {
			return c
		}
	default:
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
