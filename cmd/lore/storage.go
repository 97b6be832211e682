package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ssargent/strata/pkg/codec"
	"github.com/ssargent/strata/pkg/config"
	"github.com/ssargent/strata/pkg/logger"
	"github.com/ssargent/strata/pkg/query"
	"github.com/ssargent/strata/pkg/store"
)

// ErrNotFound is returned for references to entities that do not exist.
var ErrNotFound = errors.New("entity not found")

// LoreStore manages persistence of lore entities in a Strata store
type LoreStore struct {
	db  *store.Backgroundable
	now func() time.Time
}

// OpenLoreStore opens the store kept in projectDir/.lore.
func OpenLoreStore(projectDir, engine string, log logger.Logger) (*LoreStore, error) {
	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(projectDir, ".lore")
	if engine != "" {
		cfg.Engine = engine
	}
	cfg.Background.Workers = 1

	db, err := store.Open(cfg, log, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &LoreStore{db: db, now: time.Now}, nil
}

// Close closes the store
func (ls *LoreStore) Close() error {
	return ls.db.Close()
}

// PutEntity creates or replaces an entity, keeping its creation time.
func (ls *LoreStore) PutEntity(ctx context.Context, entity *Entity) error {
	if entity.ID == "" {
		entity.ID = generateID(entity.Name)
	}
	if err := entity.Validate(); err != nil {
		return err
	}

	return ls.db.Main.Update(ctx, func(tx *store.Tx) error {
		existing, err := store.Select[entityRecord](tx, entityKey(entity.Ref()))
		if err != nil {
			return err
		}
		now := ls.now()
		entity.CreatedAt = now
		if existing != nil {
			entity.CreatedAt = existing.Created.Time
		}
		entity.UpdatedAt = now
		return tx.Insert(toRecord(entity))
	})
}

// GetEntity retrieves an entity by reference
func (ls *LoreStore) GetEntity(ctx context.Context, ref Ref) (*Entity, error) {
	var out *Entity
	err := ls.db.Main.View(ctx, func(tx *store.Tx) error {
		e, err := getEntity(tx, ref)
		out = e
		return err
	})
	return out, err
}

func getEntity(tx *store.Tx, ref Ref) (*Entity, error) {
	r, err := store.Select[entityRecord](tx, entityKey(ref))
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return r.entity(), nil
}

// EntityExists reports whether ref names a stored entity.
func (ls *LoreStore) EntityExists(ctx context.Context, ref Ref) (bool, error) {
	_, err := ls.GetEntity(ctx, ref)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ListEntities returns the entities of one type sorted by ID. The scan runs
// on the background pool.
func (ls *LoreStore) ListEntities(ctx context.Context, entityType EntityType) ([]*Entity, error) {
	records, err := store.Find[entityRecord](ctx, ls.db.Background, query.New(codec.String(entityType)))
	if err != nil {
		return nil, err
	}
	out := make([]*Entity, len(records))
	for i, r := range records {
		out[i] = r.entity()
	}
	return out, nil
}

// DeleteEntity removes an entity and every relationship touching it.
func (ls *LoreStore) DeleteEntity(ctx context.Context, ref Ref) error {
	return ls.db.Main.Update(ctx, func(tx *store.Tx) error {
		if _, err := getEntity(tx, ref); err != nil {
			return err
		}
		out, in, err := relationships(tx, ref)
		if err != nil {
			return err
		}
		for _, rel := range append(out, in...) {
			if err := deleteRelationship(tx, rel); err != nil {
				return err
			}
		}
		return store.DeleteKey[entityRecord](tx, entityKey(ref))
	})
}

// PutRelationship links two existing entities.
func (ls *LoreStore) PutRelationship(ctx context.Context, from Ref, relation string, to Ref) error {
	if relation == "" {
		return &LoreError{"relation is required"}
	}
	return ls.db.Main.Update(ctx, func(tx *store.Tx) error {
		if _, err := getEntity(tx, from); err != nil {
			return fmt.Errorf("source: %w", err)
		}
		if _, err := getEntity(tx, to); err != nil {
			return fmt.Errorf("target: %w", err)
		}
		link, back := newLinks(Relationship{From: from, Relation: relation, To: to, CreatedAt: ls.now()})
		return tx.Insert(link, back)
	})
}

// DeleteRelationship removes one relationship. Removing a relationship that
// does not exist is not an error.
func (ls *LoreStore) DeleteRelationship(ctx context.Context, from Ref, relation string, to Ref) error {
	return ls.db.Main.Update(ctx, func(tx *store.Tx) error {
		return deleteRelationship(tx, Relationship{From: from, Relation: relation, To: to})
	})
}

func deleteRelationship(tx *store.Tx, rel Relationship) error {
	link, back := newLinks(rel)
	return tx.Delete(link, back)
}

// GetEntityWithRelationships returns an entity and its edges in both directions.
func (ls *LoreStore) GetEntityWithRelationships(ctx context.Context, ref Ref) (*EntityWithRelationships, error) {
	var out *EntityWithRelationships
	err := ls.db.Main.View(ctx, func(tx *store.Tx) error {
		e, err := getEntity(tx, ref)
		if err != nil {
			return err
		}
		outgoing, incoming, err := relationships(tx, ref)
		if err != nil {
			return err
		}
		out = &EntityWithRelationships{Entity: e, Outgoing: outgoing, Incoming: incoming}
		return nil
	})
	return out, err
}

func relationships(tx *store.Tx, ref Ref) (outgoing, incoming []Relationship, err error) {
	q := query.New(codec.String(ref.Type), codec.String(ref.ID))

	links, err := store.SelectQuery[linkRecord](tx, q)
	if err != nil {
		return nil, nil, err
	}
	for _, l := range links {
		outgoing = append(outgoing, l.relationship())
	}

	backlinks, err := store.SelectQuery[backlinkRecord](tx, q)
	if err != nil {
		return nil, nil, err
	}
	for _, b := range backlinks {
		incoming = append(incoming, b.relationship())
	}
	return outgoing, incoming, nil
}
