package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/usecase"
)

var errTxClosed = errors.New("tx is closed")

// Store is an in-memory transactional store for use case tests.
// Transactions run one at a time; their writes are buffered and applied on commit.
type Store struct {
	mu       sync.Mutex
	txSlot   chan struct{}
	accounts map[int64]*domain.Account
	byExt    map[string]int64
	records  []*domain.Transaction
	audits   []*domain.AuditLog
	nextID   int64

	// Failure injection hooks; nil means default behavior.
	UpdateBalanceFunc func(id int64, balance decimal.Decimal) error
	CreateRecordFunc  func(record *domain.Transaction) error
	CommitFunc        func() error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		txSlot:   make(chan struct{}, 1),
		accounts: make(map[int64]*domain.Account),
		byExt:    make(map[string]int64),
	}
}

// Seed adds a committed account. A zero ID is assigned from the sequence.
func (s *Store) Seed(acc domain.Account) *domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acc.ID == 0 {
		s.nextID++
		acc.ID = s.nextID
	} else if acc.ID > s.nextID {
		s.nextID = acc.ID
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
		acc.UpdatedAt = acc.CreatedAt
	}
	acc.ExternalID = domain.NormalizeExternalID(acc.ExternalID)

	stored := copyAccount(&acc)
	s.accounts[stored.ID] = stored
	s.byExt[stored.ExternalID] = stored.ID

	return copyAccount(stored)
}

// SeedRecord adds a committed ledger record without touching balances.
func (s *Store) SeedRecord(rec *domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, copyRecord(rec))
}

// Rename changes a committed account's display name.
func (s *Store) Rename(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[id]; ok {
		acc.Name = name
	}
}

// Account returns a copy of a committed account, or nil.
func (s *Store) Account(id int64) *domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[id]; ok {
		return copyAccount(acc)
	}
	return nil
}

// Balance returns the committed balance of an account.
func (s *Store) Balance(id int64) decimal.Decimal {
	if acc := s.Account(id); acc != nil {
		return acc.Balance
	}
	return decimal.Zero
}

// TotalBalance sums every committed balance.
func (s *Store) TotalBalance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, acc := range s.accounts {
		total = total.Add(acc.Balance)
	}
	return total
}

// Records returns committed records in insertion order.
func (s *Store) Records() []*domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Transaction, len(s.records))
	for i, rec := range s.records {
		out[i] = copyRecord(rec)
	}
	return out
}

// AuditLogs returns committed audit logs.
func (s *Store) AuditLogs() []*domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.AuditLog(nil), s.audits...)
}

func (s *Store) TxManager() *TxManager                { return &TxManager{store: s} }
func (s *Store) Accounts() *AccountRepository         { return &AccountRepository{store: s} }
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{store: s} }
func (s *Store) Ledger() *LedgerRepository            { return &LedgerRepository{store: s} }
func (s *Store) Audit() *AuditRepository              { return &AuditRepository{store: s} }

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// Begin waits for the store's single transaction slot.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	select {
	case m.store.txSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &Tx{
		store:    m.store,
		balances: make(map[int64]balanceWrite),
	}, nil
}

type balanceWrite struct {
	balance   decimal.Decimal
	updatedAt time.Time
}

// Tx buffers writes until Commit.
type Tx struct {
	store    *Store
	balances map[int64]balanceWrite
	accounts []*domain.Account
	records  []*domain.Transaction
	audits   []*domain.AuditLog
	done     bool
}

// Commit applies buffered writes.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxClosed
	}
	defer t.finish()

	if t.store.CommitFunc != nil {
		if err := t.store.CommitFunc(); err != nil {
			return err
		}
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range t.accounts {
		s.accounts[acc.ID] = acc
		s.byExt[acc.ExternalID] = acc.ID
	}
	for id, w := range t.balances {
		acc := s.accounts[id]
		acc.Balance = w.balance
		acc.UpdatedAt = w.updatedAt
		acc.Version++
	}
	s.records = append(s.records, t.records...)
	s.audits = append(s.audits, t.audits...)

	return nil
}

// Rollback discards buffered writes. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *Tx) finish() {
	t.done = true
	<-t.store.txSlot
}

// view returns the account as this transaction sees it. Caller holds store.mu.
func (t *Tx) view(id int64) *domain.Account {
	var acc *domain.Account
	if committed, ok := t.store.accounts[id]; ok {
		acc = copyAccount(committed)
	} else {
		for _, pending := range t.accounts {
			if pending.ID == id {
				acc = copyAccount(pending)
			}
		}
	}
	if acc == nil {
		return nil
	}
	if w, ok := t.balances[id]; ok {
		acc.Balance = w.balance
	}
	return acc
}

func (t *Tx) idForExternal(ext string) (int64, bool) {
	if id, ok := t.store.byExt[ext]; ok {
		return id, true
	}
	for _, pending := range t.accounts {
		if pending.ExternalID == ext {
			return pending.ID, true
		}
	}
	return 0, false
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.done {
		return nil, errTxClosed
	}
	return t, nil
}

// AccountRepository implements usecase.AccountRepository over a Store.
type AccountRepository struct {
	store *Store
}

func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := t.idForExternal(account.ExternalID); exists {
		return domain.ErrAccountExists
	}

	s.nextID++
	account.ID = s.nextID
	t.accounts = append(t.accounts, copyAccount(account))

	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	if acc := r.store.Account(id); acc != nil {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byExt[externalID]; ok {
		return copyAccount(s.accounts[id]), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r *AccountRepository) GetByExternalIDsForUpdate(ctx context.Context, tx usecase.Transaction, externalIDs []string) ([]*domain.Account, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	seen := make(map[int64]bool)
	var accounts []*domain.Account
	for _, ext := range externalIDs {
		id, ok := t.idForExternal(ext)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		accounts = append(accounts, t.view(id))
	}
	sortAccounts(accounts)

	return accounts, nil
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id int64, balance decimal.Decimal, updatedAt time.Time) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	if r.store.UpdateBalanceFunc != nil {
		if err := r.store.UpdateBalanceFunc(id, balance); err != nil {
			return err
		}
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if t.view(id) == nil {
		return fmt.Errorf("%w: balance update matched no account %d", domain.ErrIntegrity, id)
	}
	if balance.IsNegative() {
		return fmt.Errorf("balance check violated for account %d", id)
	}

	t.balances[id] = balanceWrite{balance: balance, updatedAt: updatedAt}
	return nil
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]*domain.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		accounts = append(accounts, copyAccount(acc))
	}
	sortAccounts(accounts)

	return page(accounts, limit, offset), nil
}

// TransactionRepository implements usecase.TransactionRepository over a Store.
type TransactionRepository struct {
	store *Store
}

func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	if r.store.CreateRecordFunc != nil {
		if err := r.store.CreateRecordFunc(record); err != nil {
			return err
		}
	}

	t.records = append(t.records, copyRecord(record))
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	for _, rec := range r.store.Records() {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (r *TransactionRepository) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Transaction, int64, error) {
	matched := r.match(filter)
	return page(matched, filter.Limit, filter.Offset), int64(len(matched)), nil
}

func (r *TransactionRepository) ListAll(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Transaction, error) {
	matched := r.match(filter)
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *TransactionRepository) match(f domain.HistoryFilter) []*domain.Transaction {
	search := strings.ToLower(f.Search)

	var out []*domain.Transaction
	for _, rec := range r.store.Records() {
		if rec.SenderID != f.AccountID && rec.ReceiverID != f.AccountID {
			continue
		}

		switch f.Direction {
		case domain.DirectionSent:
			if rec.IsSelfReferential() || rec.SenderID != f.AccountID {
				continue
			}
		case domain.DirectionReceived:
			if rec.IsSelfReferential() || rec.ReceiverID != f.AccountID {
				continue
			}
		case domain.DirectionTopUp:
			if !rec.IsSelfReferential() {
				continue
			}
		}

		if f.From != nil && rec.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !rec.CreatedAt.Before(*f.To) {
			continue
		}

		if search != "" {
			cp := rec.Counterparty(f.AccountID)
			if !strings.Contains(strings.ToLower(cp.Name), search) &&
				!strings.Contains(strings.ToLower(cp.ExternalID), search) {
				continue
			}
		}

		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	return out
}

// LedgerRepository implements usecase.LedgerRepository over a Store.
type LedgerRepository struct {
	store *Store
}

func (r *LedgerRepository) Totals(ctx context.Context) (usecase.LedgerTotals, error) {
	totals := usecase.LedgerTotals{
		Balances:          r.store.TotalBalance(),
		TopUps:            decimal.Zero,
		CreditAdjustments: decimal.Zero,
		DebitAdjustments:  decimal.Zero,
	}

	for _, rec := range r.store.Records() {
		switch rec.Type {
		case domain.TypeTopUp:
			totals.TopUps = totals.TopUps.Add(rec.Amount)
		case domain.TypeAdjustment:
			if rec.IsDebit(rec.ReceiverID) {
				totals.DebitAdjustments = totals.DebitAdjustments.Add(rec.Amount)
			} else {
				totals.CreditAdjustments = totals.CreditAdjustments.Add(rec.Amount)
			}
		}
	}

	return totals, nil
}

// AuditRepository implements usecase.AuditRepository over a Store.
type AuditRepository struct {
	store *Store
}

func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	t.audits = append(t.audits, log)
	return nil
}

func sortAccounts(accounts []*domain.Account) {
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func copyAccount(a *domain.Account) *domain.Account {
	cp := *a
	return &cp
}

func copyRecord(r *domain.Transaction) *domain.Transaction {
	cp := *r
	if r.Metadata != nil {
		cp.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
