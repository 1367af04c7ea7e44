package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Constitosh/verifyDN/internal/metrics"
	"github.com/Constitosh/verifyDN/internal/profile"
)

var (
	// ErrNoProfile means the identity never saved a profile. A saved profile
	// with no wallets is not an error.
	ErrNoProfile = errors.New("no profile saved yet")

	ErrRoleAssignmentFailed = errors.New("role assignment failed")
)

// Result is the capability's success payload, passed through untouched.
type Result struct {
	Payload json.RawMessage
}

func (r Result) MarshalJSON() ([]byte, error) {
	if len(r.Payload) == 0 {
		return []byte("null"), nil
	}
	return r.Payload, nil
}

// Assigner is the external role-assignment capability.
type Assigner interface {
	Assign(ctx context.Context, p profile.Profile) (Result, error)
}

type ProfileLookup interface {
	Lookup(ctx context.Context, identityKey string) (*profile.Profile, error)
}

type Gateway struct {
	profiles ProfileLookup
	assigner Assigner
	metrics  *metrics.Metrics
}

func NewGateway(profiles ProfileLookup, assigner Assigner, m *metrics.Metrics) *Gateway {
	return &Gateway{
		profiles: profiles,
		assigner: assigner,
		metrics:  m,
	}
}

// Assign forwards the saved profile of identityKey to the capability. The
// profile itself is never modified here, whatever the outcome.
func (g *Gateway) Assign(ctx context.Context, identityKey string) (Result, error) {
	p, err := g.profiles.Lookup(ctx, identityKey)
	if err != nil {
		g.metrics.RoleAssignment(metrics.OutcomeError, time.Time{})
		return Result{}, err
	}
	if p == nil || !p.Saved() {
		g.metrics.RoleAssignment(metrics.OutcomeNoProfile, time.Time{})
		return Result{}, ErrNoProfile
	}

	start := time.Now()
	res, err := g.assigner.Assign(ctx, *p)
	if err != nil {
		g.metrics.RoleAssignment(metrics.OutcomeAssignmentFailed, start)
		return Result{}, fmt.Errorf("%w: %w", ErrRoleAssignmentFailed, err)
	}

	g.metrics.RoleAssignment(metrics.OutcomeSuccess, start)
	return res, nil
}
