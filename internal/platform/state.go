package platform

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LocalPool records the app id of a pool this node has claimed responsibility
// for, plus which node slot it was placed on.
type LocalPool struct {
	NodeID    int
	PoolAppID uint64
}

// OperatorState is this node's local bookkeeping about which validator it
// operates and which of that validator's pools live on this node -
// everything the daemon and CLI need that isn't itself part of the registry
// or pool state. Mirrors the node manager's ValidatorInfo/PersistedPoolInfo
// split between chain-owned and operator-owned data.
type OperatorState struct {
	ValidatorID uint64
	Owner       string
	Manager     string
	NodeNum     int
	Pools       []LocalPool
}

func StateFilename() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, "stakepoold.json"), nil
}

// LoadOperatorState reads the node's local state file. A missing file
// returns os.ErrNotExist so callers can distinguish "never configured" from
// a real read error, the same contract LoadConfig gives the node manager's
// CLI.
func LoadOperatorState() (*OperatorState, error) {
	name, err := StateFilename()
	if err != nil {
		return nil, err
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var state OperatorState
	if err := json.NewDecoder(file).Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveOperatorState writes via a temp file plus rename so a crash mid-write
// never leaves a half-written state file behind.
func SaveOperatorState(state *OperatorState) error {
	name, err := StateFilename()
	if err != nil {
		return err
	}
	temp, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(temp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return fmt.Errorf("error saving operator state: %w", err)
	}
	if err := temp.Close(); err != nil {
		return err
	}
	return os.Rename(temp.Name(), name)
}
