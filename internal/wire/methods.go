// Package wire gives the registry/pool operations of internal/core stable,
// collision-checked method selectors without hand-rolling the encoding -
// the same role the node manager leans on go-algorand-sdk's abi package for
// when it builds AtomicTransactionComposer calls (see optconfig.go's
// addValidator/getMbrAmounts). Nothing here talks to a network; it only
// gives external callers (the CLI, a future transport) a name<->selector
// mapping consistent with the ABI method-selector convention.
package wire

import (
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/abi"
)

// Receiver identifies which contract a method call targets.
type Receiver string

const (
	ReceiverRegistry Receiver = "registry"
	ReceiverPool     Receiver = "pool"
)

// MethodSpec pairs a core operation with its ABI signature and the 4-byte
// selector derived from it.
type MethodSpec struct {
	Name      string
	Receiver  Receiver
	Signature string
	Method    abi.Method
	Selector  [4]byte
}

// table lists every external operation of §4.1/§4.2/§6 with the ABI
// signature it would carry over the wire. Tuple types mirror the Go structs
// they decode into (PoolKey, MbrAmounts, ProtocolConstraints).
var table = []struct {
	name      string
	receiver  Receiver
	signature string
}{
	{"addValidator", ReceiverRegistry, "addValidator(address,address,uint64,(uint16,uint32,address,uint64,uint64,uint16,uint16,uint64,uint64))uint64"},
	{"addPool", ReceiverRegistry, "addPool(pay,uint64,uint64)(uint64,uint64,uint64)"},
	{"addStake", ReceiverRegistry, "addStake(pay,uint64)(uint64,uint64,uint64)"},
	{"removeStake", ReceiverPool, "removeStake(uint64)uint64"},
	{"claimTokens", ReceiverPool, "claimTokens()uint64"},
	{"payTokenReward", ReceiverPool, "payTokenReward(address,uint64,uint64)void"},
	{"epochBalanceUpdate", ReceiverPool, "epochBalanceUpdate(uint64)void"},
	{"goOnline", ReceiverPool, "goOnline(address,address,byte[],byte[],byte[],uint64,uint64,uint64)void"},
	{"goOffline", ReceiverPool, "goOffline(address,address)void"},
	{"updateAlgodVer", ReceiverPool, "updateAlgodVer(address,address,string)void"},
	{"linkToNFD", ReceiverPool, "linkToNFD(address,address,uint64)void"},
	{"getMbrAmounts", ReceiverRegistry, "getMbrAmounts(uint64)(uint64,uint64,uint64,uint64)"},
	{"getProtocolConstraints", ReceiverRegistry, "getProtocolConstraints()(uint16,uint16,uint32,uint32,uint16,uint16,uint16,uint64,uint64,uint64)"},
	{"setTokenPayoutRatio", ReceiverRegistry, "setTokenPayoutRatio(uint64)(uint64[48],uint64)"},
}

var (
	byName     = map[string]MethodSpec{}
	bySelector = map[[4]byte]MethodSpec{}
)

func init() {
	for _, row := range table {
		m, err := abi.MethodFromSignature(row.signature)
		if err != nil {
			panic(fmt.Sprintf("wire: invalid ABI signature for %s: %v", row.name, err))
		}
		var selector [4]byte
		copy(selector[:], m.GetSelector())
		spec := MethodSpec{
			Name:      row.name,
			Receiver:  row.receiver,
			Signature: row.signature,
			Method:    m,
			Selector:  selector,
		}
		if existing, collide := bySelector[selector]; collide {
			panic(fmt.Sprintf("wire: selector collision between %s and %s", existing.Name, row.name))
		}
		byName[row.name] = spec
		bySelector[selector] = spec
	}
}

// Lookup resolves a method by its four-byte selector, the form a transport
// layer would actually see on the wire.
func Lookup(selector [4]byte) (MethodSpec, bool) {
	spec, ok := bySelector[selector]
	return spec, ok
}

// ByName resolves a method by its spec.md operation name.
func ByName(name string) (MethodSpec, bool) {
	spec, ok := byName[name]
	return spec, ok
}

// All returns every registered method spec in the declaration order of the
// table above (registry and pool operations are interleaved there).
func All() []MethodSpec {
	specs := make([]MethodSpec, 0, len(table))
	for _, row := range table {
		specs = append(specs, byName[row.name])
	}
	return specs
}
