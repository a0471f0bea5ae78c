// Package acl keeps the grant table deciding which accounts may compute on or decrypt a
// ciphertext handle.
package acl

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/fhe"
)

var ErrGrantFailed = errors.New("access grant failed")

// Grant is one persistent (handle, account) entry.
type Grant struct {
	Handle  fhe.Handle     `json:"handle"`
	Account common.Address `json:"account"`
}

// ACL holds persistent grants and the transient grants of the running unit.
type ACL struct {
	mu         sync.RWMutex
	persistent map[fhe.Handle]map[common.Address]struct{}
	transient  map[fhe.Handle]map[common.Address]struct{}
}

var _ fhe.Permissions = (*ACL)(nil)

func New() *ACL {
	return &ACL{
		persistent: make(map[fhe.Handle]map[common.Address]struct{}),
		transient:  make(map[fhe.Handle]map[common.Address]struct{}),
	}
}

// Allow records a persistent grant. Granting twice has no further effect.
func (a *ACL) Allow(tx *chain.Tx, h fhe.Handle, account common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if hasGrant(a.persistent, h, account) {
		return
	}
	addGrant(a.persistent, h, account)
	tx.Journal(func() {
		a.mu.Lock()
		removeGrant(a.persistent, h, account)
		a.mu.Unlock()
	})
}

// AllowTransient grants h to account until ClearTransient.
func (a *ACL) AllowTransient(h fhe.Handle, account common.Address) {
	a.mu.Lock()
	addGrant(a.transient, h, account)
	a.mu.Unlock()
}

// IsAllowed reports a persistent or transient grant.
func (a *ACL) IsAllowed(h fhe.Handle, account common.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return hasGrant(a.persistent, h, account) || hasGrant(a.transient, h, account)
}

// IsAllowedPersistent ignores transient grants.
func (a *ACL) IsAllowedPersistent(h fhe.Handle, account common.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return hasGrant(a.persistent, h, account)
}

// ClearTransient drops every transient grant.
func (a *ACL) ClearTransient() {
	a.mu.Lock()
	a.transient = make(map[fhe.Handle]map[common.Address]struct{})
	a.mu.Unlock()
}

// Export returns the persistent grants in a stable order.
func (a *ACL) Export() []Grant {
	a.mu.RLock()
	defer a.mu.RUnlock()

	grants := make([]Grant, 0, len(a.persistent))
	for h, accounts := range a.persistent {
		for account := range accounts {
			grants = append(grants, Grant{Handle: h, Account: account})
		}
	}
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].Handle != grants[j].Handle {
			return grants[i].Handle.Hex() < grants[j].Handle.Hex()
		}
		return grants[i].Account.Hex() < grants[j].Account.Hex()
	})
	return grants
}

// Import replaces the persistent grants.
func (a *ACL) Import(grants []Grant) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.persistent = make(map[fhe.Handle]map[common.Address]struct{})
	for _, g := range grants {
		addGrant(a.persistent, g.Handle, g.Account)
	}
}

func hasGrant(table map[fhe.Handle]map[common.Address]struct{}, h fhe.Handle, account common.Address) bool {
	accounts, ok := table[h]
	if !ok {
		return false
	}
	_, ok = accounts[account]
	return ok
}

func addGrant(table map[fhe.Handle]map[common.Address]struct{}, h fhe.Handle, account common.Address) {
	accounts, ok := table[h]
	if !ok {
		accounts = make(map[common.Address]struct{})
		table[h] = accounts
	}
	accounts[account] = struct{}{}
}

func removeGrant(table map[fhe.Handle]map[common.Address]struct{}, h fhe.Handle, account common.Address) {
	accounts, ok := table[h]
	if !ok {
		return
	}
	delete(accounts, account)
	if len(accounts) == 0 {
		delete(table, h)
	}
}

// Relay issues persistent grants for handles the coprocessor knows.
type Relay struct {
	acl     *ACL
	backend fhe.Backend
	logger  *zap.Logger
}

func NewRelay(acl *ACL, backend fhe.Backend, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{acl: acl, backend: backend, logger: logger}
}

// Grant gives every grantee persistent access to h.
func (r *Relay) Grant(tx *chain.Tx, h fhe.Handle, grantees ...common.Address) error {
	if h.IsZero() || !r.backend.Exists(h) {
		return fmt.Errorf("%w: unknown handle %s", ErrGrantFailed, h.Hex())
	}
	for _, grantee := range grantees {
		r.acl.Allow(tx, h, grantee)
	}
	r.logger.Debug("grant", zap.String("handle", h.Hex()), zap.Int("grantees", len(grantees)))
	return nil
}
