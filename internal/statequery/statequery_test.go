package statequery

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxford/eventd/internal/eventstore"
)

func TestQueryRejectsTooManySets(t *testing.T) {
	e := &Engine{}
	sets := make([]string, eventstore.MaxStateSets+1)
	for i := range sets {
		sets[i] = "s"
	}
	_, err := e.Query(context.Background(), uuid.New(), sets, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_state_sets")
}

func TestQueryRejectsEmptySets(t *testing.T) {
	e := &Engine{}
	_, err := e.Query(context.Background(), uuid.New(), nil, 0, 0)
	require.Error(t, err)
}
