package platform

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/ed25519"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// KeyStore is the local signing-key wallet an operator uses to prove control
// of owner/manager accounts. The core registry/pool logic never touches key
// material directly — it only receives the addresses a caller claims to act
// as — so this stays a platform-level concern, mirroring the node manager's
// treatment of account control as orthogonal to validator logic.
type KeyStore interface {
	HasAccount(addr types.Address) bool
	FindFirstSigner(candidates []types.Address) (types.Address, bool)
}

type localKeyStore struct {
	log  *slog.Logger
	keys map[types.Address]ed25519.PrivateKey
}

// NewLocalKeyStore loads mnemonics from any STAKEPOOL_MNEMONIC* environment
// variable (populated via .env files by LoadEnv), the same convention the
// node manager uses for ALGO_MNEMONIC*.
func NewLocalKeyStore(log *slog.Logger) KeyStore {
	ks := &localKeyStore{log: log, keys: map[types.Address]ed25519.PrivateKey{}}
	ks.loadFromEnvironment()
	return ks
}

func (ks *localKeyStore) loadFromEnvironment() {
	var loaded int
	for _, key := range SecretEnvKeys() {
		phrase := os.Getenv(key)
		if phrase == "" {
			continue
		}
		if err := ks.addMnemonic(phrase); err != nil {
			Errorf(ks.log, "failed to load mnemonic from %s: %v", key, err)
			continue
		}
		loaded++
	}
	Infof(ks.log, "loaded %d local signing keys", loaded)
}

// SecretEnvKeys returns the names (never the values) of every environment
// variable that holds mnemonic material, so callers can load key material
// without ever logging it. An operator's STAKEPOOL_MNEMONIC_OWNER,
// STAKEPOOL_MNEMONIC_MANAGER, etc. all match.
func SecretEnvKeys() []string {
	seen := map[string]bool{}
	var keys []string
	for _, envVal := range os.Environ() {
		key := envVal[0:strings.IndexByte(envVal, '=')]
		if !strings.HasPrefix(key, "STAKEPOOL_MNEMONIC") || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

func (ks *localKeyStore) addMnemonic(phrase string) error {
	key, err := mnemonic.ToPrivateKey(phrase)
	if err != nil {
		return fmt.Errorf("failed to add mnemonic: %w", err)
	}
	account, err := crypto.AccountFromPrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to add mnemonic: %w", err)
	}
	ks.keys[account.Address] = key
	Infof(ks.log, "loaded key for account %s", account.Address.String())
	return nil
}

func (ks *localKeyStore) HasAccount(addr types.Address) bool {
	_, found := ks.keys[addr]
	return found
}

func (ks *localKeyStore) FindFirstSigner(candidates []types.Address) (types.Address, bool) {
	for _, c := range candidates {
		if ks.HasAccount(c) {
			return c, true
		}
	}
	return types.Address{}, false
}

// GenerateParticipationKeyMaterial fabricates the vote/selection/state-proof
// key bytes the `key online` command attaches to a simulated goOnline call.
// A real node asks algod for these; this core has no chain underneath it to
// ask, so placeholder key material of the right shape is generated instead.
func GenerateParticipationKeyMaterial() (votePK, selectionPK, stateProofPK []byte, err error) {
	votePK = make([]byte, ed25519.PublicKeySize)
	selectionPK = make([]byte, ed25519.PublicKeySize)
	stateProofPK = make([]byte, 64)
	for _, b := range [][]byte{votePK, selectionPK, stateProofPK} {
		if _, err = rand.Read(b); err != nil {
			return nil, nil, nil, err
		}
	}
	return votePK, selectionPK, stateProofPK, nil
}
