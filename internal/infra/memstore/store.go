// Package memstore keeps every repository in process memory so service logic
// can be tested without Postgres. Transactions are serialised and a failed
// transaction restores the state it started from.
package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"sync"

	"github.com/fastprodman/perlas-wallet/internal/repos/customers"
	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/fastprodman/perlas-wallet/internal/repos/gatewaytxns"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/fastprodman/perlas-wallet/internal/repos/users"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/fastprodman/perlas-wallet/internal/repos/webhookevents"
)

type customerKey struct {
	userID  uint64
	gateway string
}

type state struct {
	users     map[uint64]users.User
	wallets   map[uint64]wallets.Wallet
	txns      map[string]transactions.Transaction
	txnSeq    map[string]int
	deposits  map[string]deposits.DepositRequest
	charges   map[string]gatewaytxns.GatewayTransaction
	events    map[string]webhookevents.Event
	customers map[customerKey]customers.Mapping
}

func newState() state {
	return state{
		users:     map[uint64]users.User{},
		wallets:   map[uint64]wallets.Wallet{},
		txns:      map[string]transactions.Transaction{},
		txnSeq:    map[string]int{},
		deposits:  map[string]deposits.DepositRequest{},
		charges:   map[string]gatewaytxns.GatewayTransaction{},
		events:    map[string]webhookevents.Event{},
		customers: map[customerKey]customers.Mapping{},
	}
}

func (s state) clone() state {
	return state{
		users:     maps.Clone(s.users),
		wallets:   maps.Clone(s.wallets),
		txns:      maps.Clone(s.txns),
		txnSeq:    maps.Clone(s.txnSeq),
		deposits:  maps.Clone(s.deposits),
		charges:   maps.Clone(s.charges),
		events:    maps.Clone(s.events),
		customers: maps.Clone(s.customers),
	}
}

type Store struct {
	// txMu serialises WithTx, mu guards the maps for single operations.
	txMu sync.Mutex
	mu   sync.Mutex

	st     state
	failOn map[string]error
}

func New() *Store {
	return &Store{
		st:     newState(),
		failOn: map[string]error{},
	}
}

// WithTx runs fn with a nil *sql.Tx; repository views ignore it.
func (s *Store) WithTx(_ context.Context, fn func(*sql.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	err := fn(nil)
	if err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()

		return fmt.Errorf("fn: %w", err)
	}

	return nil
}

// FailOn makes the named operation (e.g. "wallets.IncreaseBalance") return
// err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failOn, op)
		return
	}

	s.failOn[op] = err
}

// lock takes the data mutex and reports an injected failure for op.
func (s *Store) lock(op string) error {
	s.mu.Lock()

	err, ok := s.failOn[op]
	if ok {
		s.mu.Unlock()
		return err
	}

	return nil
}

// AddUser registers a user without opening a wallet.
func (s *Store) AddUser(u users.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.users[u.ID] = u
}

func (s *Store) Users() users.Users                      { return usersView{s} }
func (s *Store) Wallets() wallets.Wallets                { return walletsView{s} }
func (s *Store) Transactions() transactions.Transactions { return txnsView{s} }
func (s *Store) Deposits() deposits.Deposits             { return depositsView{s} }
func (s *Store) GatewayTxns() gatewaytxns.GatewayTxns    { return chargesView{s} }
func (s *Store) Events() webhookevents.Events            { return eventsView{s} }
func (s *Store) Customers() customers.Customers          { return customersView{s} }
