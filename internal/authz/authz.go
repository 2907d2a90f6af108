// Package authz declares the external authorization-policy-engine contract
// (spec.md §1: "invoked via an Authorize(subject, object, action) -> duration
// contract"). Its implementation (policy storage, token parsing) is out of
// scope for this service; only the contract and the ban-check callback this
// service feeds into it live here.
package authz

import (
	"context"
	"time"
)

// Action is one of the verbs the policy engine understands.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
)

// Object is a policy-engine object path, e.g. ["rooms", roomID, "events"].
type Object []string

// Engine is the external authorization collaborator. Authorize returns the
// duration the decision may be cached for; Ban propagates a ban decision to
// the engine's own cache with a TTL (spec.md §4.C "Agent-update").
type Engine interface {
	Authorize(ctx context.Context, subject string, object Object, action Action) (time.Duration, error)
	Ban(ctx context.Context, accountID string, object Object, ttl time.Duration, banned bool) error
}

// Intent describes the access the engine is about to decide on, passed to a
// BanCheck callback (spec.md §4.C "Ban callback").
type Intent struct {
	Subject string
	Object  Object
	Action  Action
}

// BanCheck is consulted by the external authz engine before it makes its own
// decision: if the intent's object is [rooms|classrooms, ID, events, ...],
// look up the ban by (account, room/classroom) and return true when present.
// Failures must log and return false -- "fail-open for ban check, because
// denial is already the authz default" (spec.md §4.C).
type BanCheck func(ctx context.Context, accountID string, intent Intent) bool
