package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikogura/dfx-scorer/pkg/rules"
)

func openTestStore(t *testing.T) (store *Store) {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAssignsIdentity(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := &Iteration{
		Project:  "drone",
		Aspect:   rules.DFA,
		Category: "drones",
		Score:    0.41,
		Prompt:   "A racing drone frame",
		Metrics:  rules.Metrics{"partCount": 14, "symmetry": false},
		Report:   json.RawMessage(`{"score":0.41}`),
	}
	require.NoError(t, store.Save(ctx, first))

	_, err := uuid.Parse(first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)
	assert.False(t, first.CreatedAt.IsZero())

	second := &Iteration{Project: "drone", Aspect: rules.DFA, Score: 0.72, Metrics: rules.Metrics{"partCount": 5}}
	require.NoError(t, store.Save(ctx, second))
	assert.Equal(t, 2, second.Number)
	assert.NotEqual(t, first.ID, second.ID)

	other := &Iteration{Project: "kettle", Aspect: rules.DFSust, Score: 0.5, Metrics: rules.Metrics{}}
	require.NoError(t, store.Save(ctx, other))
	assert.Equal(t, 1, other.Number)
}

func TestListAndLatest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, score := range []float64{0.3, 0.55, 0.8} {
		require.NoError(t, store.Save(ctx, &Iteration{
			Project: "drone",
			Aspect:  rules.DFM,
			Score:   score,
			Metrics: rules.Metrics{"materialCount": 2, "geometryComplexity": "simple"},
		}))
	}

	iterations, err := store.List(ctx, "drone")
	require.NoError(t, err)
	require.Len(t, iterations, 3)

	for i, it := range iterations {
		assert.Equal(t, i+1, it.Number)
		assert.Equal(t, rules.DFM, it.Aspect)
		assert.Equal(t, "simple", it.Metrics["geometryComplexity"])
	}
	assert.InDelta(t, 0.25, Delta(iterations[0], iterations[1]), 1e-9)

	latest, err := store.Latest(ctx, "drone")
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Number)
	assert.InDelta(t, 0.8, latest.Score, 1e-9)
	assert.Nil(t, latest.Report)

	projects, err := store.Projects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"drone"}, projects)
}

func TestLatestNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Latest(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	iterations, err := store.List(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, iterations)
}

func TestSaveRequiresProject(t *testing.T) {
	store := openTestStore(t)

	err := store.Save(context.Background(), &Iteration{Aspect: rules.DFA})
	assert.Error(t, err)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestReportRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Iteration{
		Project:       "chair",
		Aspect:        rules.DFS,
		Score:         0.6,
		RefinedPrompt: "A chair with tool-free removable fasteners",
		Metrics:       rules.Metrics{"modularity": 0.6},
		Report:        json.RawMessage(`{"aspect":"DFS"}`),
	}))

	latest, err := store.Latest(ctx, "chair")
	require.NoError(t, err)
	assert.JSONEq(t, `{"aspect":"DFS"}`, string(latest.Report))
	assert.Equal(t, "A chair with tool-free removable fasteners", latest.RefinedPrompt)
}
