package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpintel/edgargraph/internal/errors"
)

type fakeDirectory struct {
	entities []Entity
}

func (d *fakeDirectory) FindExact(_ context.Context, kind EntityKind, normalized string) (*Entity, error) {
	for i, e := range d.entities {
		if e.Kind == kind && e.NormalizedName == normalized {
			return &d.entities[i], nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) Candidates(_ context.Context, kind EntityKind, _ Hints) ([]Entity, error) {
	var out []Entity
	for _, e := range d.entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestResolveExactMatch(t *testing.T) {
	dir := &fakeDirectory{entities: []Entity{
		{ID: "c-1", Kind: EntityCompany, Name: "Apple Inc.", NormalizedName: "apple", CIK: "0000320193"},
	}}
	linker := NewLinker(dir)

	resolved, err := linker.Resolve(context.Background(), EntityCompany, "Apple, Inc.", Hints{})
	require.NoError(t, err)
	assert.Equal(t, "c-1", resolved.ID)
	assert.Equal(t, "0000320193", resolved.CIK)
	assert.Equal(t, MethodExact, resolved.Method)
	assert.Equal(t, 1.0, resolved.Confidence)
	assert.False(t, resolved.Created)
}

func TestResolveSimilarityMatch(t *testing.T) {
	dir := &fakeDirectory{entities: []Entity{
		{ID: "c-1", Kind: EntityCompany, Name: "Acme Industries Inc.", NormalizedName: "acme industries"},
		{ID: "c-2", Kind: EntityCompany, Name: "Globex Corporation", NormalizedName: "globex"},
	}}
	linker := NewLinker(dir)

	resolved, err := linker.Resolve(context.Background(), EntityCompany, "Acme Industrys", Hints{})
	require.NoError(t, err)
	assert.Equal(t, "c-1", resolved.ID)
	assert.Equal(t, MethodSimilarity, resolved.Method)
	assert.False(t, resolved.Created)
	assert.GreaterOrEqual(t, resolved.Confidence, defaultMinSimilarity)
}

func TestResolveNearTieIsAmbiguous(t *testing.T) {
	dir := &fakeDirectory{entities: []Entity{
		{ID: "c-1", Kind: EntityCompany, Name: "Global Data Systems International", NormalizedName: "global data systems international"},
		{ID: "c-2", Kind: EntityCompany, Name: "Global Data Systems Worldwide", NormalizedName: "global data systems worldwide"},
	}}
	linker := NewLinker(dir)

	_, err := linker.Resolve(context.Background(), EntityCompany, "Global Data Systems", Hints{})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryAmbiguous, errors.CategoryOf(err))
}

func TestResolveCreatesNewEntity(t *testing.T) {
	dir := &fakeDirectory{entities: []Entity{
		{ID: "c-1", Kind: EntityCompany, Name: "Apple Inc.", NormalizedName: "apple"},
	}}
	linker := NewLinker(dir)

	resolved, err := linker.Resolve(context.Background(), EntityCompany, "Zenith Robotics LLC", Hints{})
	require.NoError(t, err)
	assert.True(t, resolved.Created)
	assert.Equal(t, MethodCreated, resolved.Method)
	assert.NotEmpty(t, resolved.ID)
	assert.Equal(t, "Zenith Robotics LLC", resolved.Name)
	assert.Equal(t, "zenith robotics", resolved.NormalizedName)
}

func TestResolveIsDeterministicWithinRun(t *testing.T) {
	linker := NewLinker(&fakeDirectory{})

	first, err := linker.Resolve(context.Background(), EntityCompany, "Zenith Robotics LLC", Hints{})
	require.NoError(t, err)

	// Suffix and punctuation variants of the same name hit the cache and
	// return the entity minted for the first spelling.
	second, err := linker.Resolve(context.Background(), EntityCompany, "Zenith Robotics, LLC", Hints{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.NormalizedName, second.NormalizedName)
}

func TestResolvePersonKind(t *testing.T) {
	dir := &fakeDirectory{entities: []Entity{
		{ID: "p-1", Kind: EntityPerson, Name: "Timothy D. Cook", NormalizedName: "timothy d cook"},
		{ID: "c-1", Kind: EntityCompany, Name: "Cook Industries", NormalizedName: "cook industries"},
	}}
	linker := NewLinker(dir)

	resolved, err := linker.Resolve(context.Background(), EntityPerson, "TIMOTHY D COOK", Hints{})
	require.NoError(t, err)
	assert.Equal(t, "p-1", resolved.ID)
	assert.Equal(t, MethodExact, resolved.Method)
}

func TestResolveRejectsShortNames(t *testing.T) {
	linker := NewLinker(&fakeDirectory{})

	_, err := linker.Resolve(context.Background(), EntityCompany, "X", Hints{})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryMalformed, errors.CategoryOf(err))
}
