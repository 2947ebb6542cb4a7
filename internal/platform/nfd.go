package platform

import (
	"context"
	"fmt"

	"github.com/antihax/optional"
)

// NFDClient is an opaque collaborator: this core treats NFD verification as
// an external app-call effect it emits but never interprets (SPEC_FULL's
// "NFD linkage as a first-class opaque call"). This stub only answers "does
// this name/app id resolve and who owns it"; no CLI command calls it, and
// `validator init` registers validators with nfdAppId 0.
type NFDClient struct {
	baseURL string
}

func NewNFDClient(baseURL string) *NFDClient {
	return &NFDClient{baseURL: baseURL}
}

// NFDLookupOpts mirrors the optional-parameter plumbing the node manager's
// generated swagger client uses for its search endpoint.
type NFDLookupOpts struct {
	Owner       optional.String
	ParentAppID optional.Int64
	Limit       optional.Int64
}

type NFDRecord struct {
	AppID uint64
	Name  string
	Owner string
}

// Lookup resolves a name to its NFD record. The real implementation would
// call out to the NFD API; this core has no such dependency configured by
// default, so an unconfigured client reports a clear not-found rather than
// silently fabricating a record.
func (c *NFDClient) Lookup(ctx context.Context, name string, opts NFDLookupOpts) (NFDRecord, error) {
	if c.baseURL == "" {
		return NFDRecord{}, fmt.Errorf("nfd lookup for %q: no NFD API configured", name)
	}
	return NFDRecord{}, fmt.Errorf("nfd lookup for %q: not implemented against %s", name, c.baseURL)
}
