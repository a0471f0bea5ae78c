package deploy

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"hiddenLiquidity/internal/acl"
	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/fhe/mock"
	"hiddenLiquidity/internal/ledger"
	"hiddenLiquidity/internal/token"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

var ErrNotSnapshottable = errors.New("backend state cannot be exported")

// Snapshot is the persisted world state between CLI invocations.
type Snapshot struct {
	Version   int                    `json:"version"`
	ChainID   uint64                 `json:"chain_id"`
	Addresses Addresses              `json:"addresses"`
	Chain     chain.State            `json:"chain"`
	Backend   mock.State             `json:"backend"`
	Grants    []acl.Grant            `json:"grants"`
	Ledger    ledger.State           `json:"ledger"`
	Tokens    map[string]token.State `json:"tokens"`
}

// Snapshot exports the world. Only the cleartext mock backend can be exported.
func (w *World) Snapshot() (*Snapshot, error) {
	backend, ok := w.Backend.(*mock.Backend)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSnapshottable, w.Backend.Name())
	}
	var snap *Snapshot
	err := w.Runtime.Freeze(func(progress chain.State) error {
		snap = &Snapshot{
			Version:   SnapshotVersion,
			ChainID:   w.Config.ChainID,
			Addresses: w.Addresses,
			Chain:     progress,
			Backend:   backend.Export(),
			Grants:    w.ACL.Export(),
			Ledger:    w.Engine.Ledger().Export(),
			Tokens:    make(map[string]token.State, 3),
		}
		for _, t := range w.Tokens() {
			snap.Tokens[t.Symbol()] = t.Export()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore rebuilds a world from a snapshot. cfg must name the same deployer and chain.
func Restore(cfg Config, snap *Snapshot, logger *zap.Logger) (*World, error) {
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("restore: snapshot version %d, want %d", snap.Version, SnapshotVersion)
	}
	if snap.ChainID != cfg.ChainID {
		return nil, fmt.Errorf("restore: snapshot chain id %d, configured %d", snap.ChainID, cfg.ChainID)
	}
	if snap.Addresses != ContractAddresses(cfg.Deployer) {
		return nil, fmt.Errorf("restore: snapshot belongs to another deployer")
	}

	backend := mock.New()
	backend.Import(snap.Backend)
	w, err := assemble(cfg, backend, logger)
	if err != nil {
		return nil, err
	}

	w.Runtime.Import(snap.Chain)
	w.ACL.Import(snap.Grants)
	l := ledger.New(snap.Ledger.Zero)
	if err := l.Import(snap.Ledger); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	for _, t := range w.Tokens() {
		if state, ok := snap.Tokens[t.Symbol()]; ok {
			t.Import(state)
		}
	}
	w.wire(l)
	return w, nil
}
