package main

import (
	"context"
	"testing"
	"time"

	"github.com/ssargent/strata/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, engine string) *LoreStore {
	t.Helper()
	ls, err := OpenLoreStore(t.TempDir(), engine, logger.NewBufferLogger())
	require.NoError(t, err)
	t.Cleanup(func() { ls.Close() })
	return ls
}

func TestGenerateID(t *testing.T) {
	assert.Equal(t, "john-doe", generateID("John Doe"))
	assert.Equal(t, "house-stark", generateID("  House  Stark! "))
	assert.Equal(t, "unnamed", generateID("!!!"))
}

func TestParseRef(t *testing.T) {
	ref, err := ParseRef("place:winterfell")
	require.NoError(t, err)
	assert.Equal(t, Ref{Type: EntityTypePlace, ID: "winterfell"}, ref)
	assert.Equal(t, "place:winterfell", ref.String())

	_, err = ParseRef("winterfell")
	assert.Error(t, err)
	_, err = ParseRef("planet:earth")
	assert.Error(t, err)
	_, err = ParseRef("place:")
	assert.Error(t, err)
}

func TestEntityLifecycle(t *testing.T) {
	for _, engine := range []string{"bolt", "pebble"} {
		t.Run(engine, func(t *testing.T) {
			ls := openTestStore(t, engine)
			ctx := context.Background()
			created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			ls.now = func() time.Time { return created }

			john := NewEntity(EntityTypeCharacter, "John Doe")
			john.Summary = "A brave knight"
			john.Tags = []string{"noble", "warrior"}
			require.NoError(t, ls.PutEntity(ctx, john))
			assert.Equal(t, "john-doe", john.ID)

			got, err := ls.GetEntity(ctx, john.Ref())
			require.NoError(t, err)
			assert.Equal(t, "John Doe", got.Name)
			assert.Equal(t, "A brave knight", got.Summary)
			assert.Equal(t, []string{"noble", "warrior"}, got.Tags)
			assert.Nil(t, got.Aka)
			assert.True(t, created.Equal(got.CreatedAt))

			updated := created.Add(time.Hour)
			ls.now = func() time.Time { return updated }
			got.Summary = "A tired knight"
			require.NoError(t, ls.PutEntity(ctx, got))

			got, err = ls.GetEntity(ctx, john.Ref())
			require.NoError(t, err)
			assert.Equal(t, "A tired knight", got.Summary)
			assert.True(t, created.Equal(got.CreatedAt))
			assert.True(t, updated.Equal(got.UpdatedAt))

			ok, err := ls.EntityExists(ctx, Ref{Type: EntityTypeCharacter, ID: "nobody"})
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = ls.GetEntity(ctx, Ref{Type: EntityTypeCharacter, ID: "nobody"})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestListEntitiesByType(t *testing.T) {
	ls := openTestStore(t, "bolt")
	ctx := context.Background()

	for _, name := range []string{"Zed", "Anna", "Mo"} {
		require.NoError(t, ls.PutEntity(ctx, NewEntity(EntityTypeCharacter, name)))
	}
	require.NoError(t, ls.PutEntity(ctx, NewEntity(EntityTypePlace, "Winterfell")))

	characters, err := ls.ListEntities(ctx, EntityTypeCharacter)
	require.NoError(t, err)
	require.Len(t, characters, 3)
	assert.Equal(t, "anna", characters[0].ID)
	assert.Equal(t, "mo", characters[1].ID)
	assert.Equal(t, "zed", characters[2].ID)

	groups, err := ls.ListEntities(ctx, EntityTypeGroup)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestRelationships(t *testing.T) {
	ls := openTestStore(t, "bolt")
	ctx := context.Background()

	john := NewEntity(EntityTypeCharacter, "John")
	jon := NewEntity(EntityTypeCharacter, "John Snow")
	winterfell := NewEntity(EntityTypePlace, "Winterfell")
	for _, e := range []*Entity{john, jon, winterfell} {
		require.NoError(t, ls.PutEntity(ctx, e))
	}

	require.NoError(t, ls.PutRelationship(ctx, john.Ref(), "located_in", winterfell.Ref()))
	require.NoError(t, ls.PutRelationship(ctx, jon.Ref(), "located_in", winterfell.Ref()))
	require.NoError(t, ls.PutRelationship(ctx, john.Ref(), "brother_of", jon.Ref()))

	err := ls.PutRelationship(ctx, john.Ref(), "friend", Ref{Type: EntityTypeCharacter, ID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	ewr, err := ls.GetEntityWithRelationships(ctx, john.Ref())
	require.NoError(t, err)
	// "john" must not pick up the edges of "john-snow".
	require.Len(t, ewr.Outgoing, 2)
	assert.Equal(t, "brother_of", ewr.Outgoing[0].Relation)
	assert.Equal(t, winterfell.Ref(), ewr.Outgoing[1].To)
	assert.Empty(t, ewr.Incoming)

	ewr, err = ls.GetEntityWithRelationships(ctx, winterfell.Ref())
	require.NoError(t, err)
	require.Len(t, ewr.Incoming, 2)
	assert.Equal(t, john.Ref(), ewr.Incoming[0].From)
	assert.Equal(t, jon.Ref(), ewr.Incoming[1].From)

	require.NoError(t, ls.DeleteEntity(ctx, john.Ref()))
	_, err = ls.GetEntity(ctx, john.Ref())
	assert.ErrorIs(t, err, ErrNotFound)

	ewr, err = ls.GetEntityWithRelationships(ctx, winterfell.Ref())
	require.NoError(t, err)
	require.Len(t, ewr.Incoming, 1)
	assert.Equal(t, jon.Ref(), ewr.Incoming[0].From)

	ewr, err = ls.GetEntityWithRelationships(ctx, jon.Ref())
	require.NoError(t, err)
	assert.Empty(t, ewr.Incoming)

	require.NoError(t, ls.DeleteRelationship(ctx, jon.Ref(), "located_in", winterfell.Ref()))
	require.NoError(t, ls.DeleteRelationship(ctx, jon.Ref(), "located_in", winterfell.Ref()))
	ewr, err = ls.GetEntityWithRelationships(ctx, winterfell.Ref())
	require.NoError(t, err)
	assert.Empty(t, ewr.Incoming)

	assert.ErrorIs(t, ls.DeleteEntity(ctx, john.Ref()), ErrNotFound)
}
