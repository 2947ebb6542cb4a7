package core

import "github.com/algorand/go-algorand-sdk/v2/types"

// MemRegistryStore is an in-memory RegistryStore, standing in for the
// durable per-network storage a native port would use (§9: "state persisted
// to durable storage"). It is also what the test suites and the
// cmd/stakepoold entrypoint use directly.
type MemRegistryStore struct {
	numValidators     uint64
	poolTemplateAppID uint64
	validators        map[uint64]*Validator
	stakerPools       map[types.Address]*StakerPoolSet
}

func NewMemRegistryStore() *MemRegistryStore {
	return &MemRegistryStore{
		validators:  make(map[uint64]*Validator),
		stakerPools: make(map[types.Address]*StakerPoolSet),
	}
}

func (s *MemRegistryStore) NumValidators() uint64         { return s.numValidators }
func (s *MemRegistryStore) SetNumValidators(n uint64)     { s.numValidators = n }
func (s *MemRegistryStore) PoolTemplateAppID() uint64     { return s.poolTemplateAppID }
func (s *MemRegistryStore) SetPoolTemplateAppID(id uint64) { s.poolTemplateAppID = id }

func (s *MemRegistryStore) GetValidator(id uint64) (*Validator, bool) {
	v, ok := s.validators[id]
	return v, ok
}

func (s *MemRegistryStore) PutValidator(v *Validator) {
	s.validators[v.ID] = v
}

func (s *MemRegistryStore) GetStakerPoolSet(staker types.Address) (*StakerPoolSet, bool) {
	set, ok := s.stakerPools[staker]
	return set, ok
}

func (s *MemRegistryStore) PutStakerPoolSet(staker types.Address, set *StakerPoolSet) {
	s.stakerPools[staker] = set
}

// MemPoolStore is an in-memory PoolStore for a single pool instance.
type MemPoolStore struct {
	state          PoolState
	ledger         []StakedInfo
	assetBalances  map[uint64]uint64
	accountBalance uint64
}

func NewMemPoolStore() *MemPoolStore {
	return &MemPoolStore{
		ledger:        make([]StakedInfo, MaxStakersPerPool),
		assetBalances: make(map[uint64]uint64),
	}
}

func (s *MemPoolStore) State() PoolState     { return s.state }
func (s *MemPoolStore) SetState(st PoolState) { s.state = st }

func (s *MemPoolStore) Ledger() []StakedInfo {
	out := make([]StakedInfo, len(s.ledger))
	copy(out, s.ledger)
	return out
}

func (s *MemPoolStore) SetLedger(l []StakedInfo) {
	s.ledger = make([]StakedInfo, len(l))
	copy(s.ledger, l)
}

func (s *MemPoolStore) AssetBalance(assetID uint64) uint64 {
	return s.assetBalances[assetID]
}

func (s *MemPoolStore) SetAssetBalance(assetID uint64, balance uint64) {
	s.assetBalances[assetID] = balance
}

func (s *MemPoolStore) AccountBalance() uint64 { return s.accountBalance }

func (s *MemPoolStore) AddAccountBalance(delta int64) {
	if delta < 0 {
		d := uint64(-delta)
		if d > s.accountBalance {
			s.accountBalance = 0
			return
		}
		s.accountBalance -= d
		return
	}
	s.accountBalance += uint64(delta)
}
