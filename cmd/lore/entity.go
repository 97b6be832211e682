package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ssargent/strata/pkg/codec"
	"github.com/ssargent/strata/pkg/record"
)

// EntityType represents the type of lore entity
type EntityType string

const (
	EntityTypeCharacter EntityType = "character"
	EntityTypePlace     EntityType = "place"
	EntityTypeGroup     EntityType = "group"
)

var entityTypes = []EntityType{EntityTypeCharacter, EntityTypePlace, EntityTypeGroup}

// Entity represents a lore entity with common fields
type Entity struct {
	ID        string     `json:"id"`
	Type      EntityType `json:"type"`
	Name      string     `json:"name"`
	Aka       []string   `json:"aka,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Details   string     `json:"details,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewEntity creates a new entity with the given type and name
func NewEntity(entityType EntityType, name string) *Entity {
	return &Entity{
		Type: entityType,
		Name: name,
	}
}

// Ref is the type:id reference of the entity.
func (e *Entity) Ref() Ref { return Ref{Type: e.Type, ID: e.ID} }

// Validate checks if the entity is valid
func (e *Entity) Validate() error {
	if e.ID == "" {
		return &LoreError{"entity ID is required"}
	}
	if e.Type == "" {
		return &LoreError{"entity type is required"}
	}
	if e.Name == "" {
		return &LoreError{"entity name is required"}
	}
	return nil
}

// Ref names an entity as type:id.
type Ref struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

func (r Ref) String() string { return fmt.Sprintf("%s:%s", r.Type, r.ID) }

// ParseRef parses an entity reference like "character:john-doe".
func ParseRef(s string) (Ref, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return Ref{}, fmt.Errorf("invalid entity reference: %s (expected format: type:id)", s)
	}
	ref := Ref{Type: EntityType(parts[0]), ID: parts[1]}
	for _, t := range entityTypes {
		if ref.Type == t {
			return ref, nil
		}
	}
	return Ref{}, fmt.Errorf("unknown entity type: %s", ref.Type)
}

// Relationship is a directed, named edge between two entities.
type Relationship struct {
	From      Ref       `json:"from"`
	Relation  string    `json:"relation"`
	To        Ref       `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}

func (r Relationship) String() string {
	return fmt.Sprintf("%s --[%s]--> %s", r.From, r.Relation, r.To)
}

// EntityWithRelationships is an entity together with the edges touching it.
type EntityWithRelationships struct {
	Entity   *Entity        `json:"entity"`
	Outgoing []Relationship `json:"outgoing"`
	Incoming []Relationship `json:"incoming"`
}

// LoreError represents a lore-specific error
type LoreError struct {
	Message string
}

func (e *LoreError) Error() string {
	return e.Message
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// generateID creates a slug-like ID from a name
func generateID(name string) string {
	id := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	id = strings.Trim(id, "-")
	if id == "" {
		id = "unnamed"
	}
	return id
}

// entityRecord is the stored form of an Entity. Entities of one type are
// adjacent in key order, sorted by ID.
type entityRecord struct {
	Type    codec.String `strata:"key"`
	ID      codec.String `strata:"key"`
	Name    codec.String
	Aka     codec.Slice[codec.String]
	Summary codec.String
	Details codec.String
	Tags    codec.Slice[codec.String]
	Created codec.Time
	Updated codec.Time
}

var entitySchema = record.MustSchema[entityRecord]()

func (r entityRecord) KeyPrefix() uint32     { return entitySchema.KeyPrefix }
func (r entityRecord) FieldsVersion() uint32 { return entitySchema.FieldsVersion }
func (r entityRecord) IndexKey() codec.Value { return entitySchema.Key(r) }
func (r entityRecord) Fields() codec.Value   { return entitySchema.Fields(r) }
func (r *entityRecord) Decode(key, fields *codec.Decoder) error {
	return entitySchema.Decode(r, key, fields)
}

func entityKey(ref Ref) codec.Value {
	return codec.NewTuple2(codec.String(ref.Type), codec.String(ref.ID))
}

func toRecord(e *Entity) entityRecord {
	return entityRecord{
		Type:    codec.String(e.Type),
		ID:      codec.String(e.ID),
		Name:    codec.String(e.Name),
		Aka:     toStrings(e.Aka),
		Summary: codec.String(e.Summary),
		Details: codec.String(e.Details),
		Tags:    toStrings(e.Tags),
		Created: codec.NewTime(e.CreatedAt),
		Updated: codec.NewTime(e.UpdatedAt),
	}
}

func (r entityRecord) entity() *Entity {
	return &Entity{
		ID:        string(r.ID),
		Type:      EntityType(r.Type),
		Name:      string(r.Name),
		Aka:       fromStrings(r.Aka),
		Summary:   string(r.Summary),
		Details:   string(r.Details),
		Tags:      fromStrings(r.Tags),
		CreatedAt: r.Created.Time,
		UpdatedAt: r.Updated.Time,
	}
}

// linkRecord stores an outgoing edge under its source entity so that all
// edges of one entity share a key prefix. backlinkRecord mirrors it under
// the target.
type linkRecord struct {
	FromType codec.String `strata:"key"`
	FromID   codec.String `strata:"key"`
	Relation codec.String `strata:"key"`
	ToType   codec.String `strata:"key"`
	ToID     codec.String `strata:"key"`
	Created  codec.Time
}

var linkSchema = record.MustSchema[linkRecord]()

func (r linkRecord) KeyPrefix() uint32     { return linkSchema.KeyPrefix }
func (r linkRecord) FieldsVersion() uint32 { return linkSchema.FieldsVersion }
func (r linkRecord) IndexKey() codec.Value { return linkSchema.Key(r) }
func (r linkRecord) Fields() codec.Value   { return linkSchema.Fields(r) }
func (r *linkRecord) Decode(key, fields *codec.Decoder) error {
	return linkSchema.Decode(r, key, fields)
}

type backlinkRecord struct {
	ToType   codec.String `strata:"key"`
	ToID     codec.String `strata:"key"`
	Relation codec.String `strata:"key"`
	FromType codec.String `strata:"key"`
	FromID   codec.String `strata:"key"`
	Created  codec.Time
}

var backlinkSchema = record.MustSchema[backlinkRecord]()

func (r backlinkRecord) KeyPrefix() uint32     { return backlinkSchema.KeyPrefix }
func (r backlinkRecord) FieldsVersion() uint32 { return backlinkSchema.FieldsVersion }
func (r backlinkRecord) IndexKey() codec.Value { return backlinkSchema.Key(r) }
func (r backlinkRecord) Fields() codec.Value   { return backlinkSchema.Fields(r) }
func (r *backlinkRecord) Decode(key, fields *codec.Decoder) error {
	return backlinkSchema.Decode(r, key, fields)
}

func newLinks(rel Relationship) (linkRecord, backlinkRecord) {
	created := codec.NewTime(rel.CreatedAt)
	return linkRecord{
			FromType: codec.String(rel.From.Type), FromID: codec.String(rel.From.ID),
			Relation: codec.String(rel.Relation),
			ToType:   codec.String(rel.To.Type), ToID: codec.String(rel.To.ID),
			Created: created,
		}, backlinkRecord{
			ToType: codec.String(rel.To.Type), ToID: codec.String(rel.To.ID),
			Relation: codec.String(rel.Relation),
			FromType: codec.String(rel.From.Type), FromID: codec.String(rel.From.ID),
			Created: created,
		}
}

func (r linkRecord) relationship() Relationship {
	return Relationship{
		From:      Ref{Type: EntityType(r.FromType), ID: string(r.FromID)},
		Relation:  string(r.Relation),
		To:        Ref{Type: EntityType(r.ToType), ID: string(r.ToID)},
		CreatedAt: r.Created.Time,
	}
}

func (r backlinkRecord) relationship() Relationship {
	return Relationship{
		From:      Ref{Type: EntityType(r.FromType), ID: string(r.FromID)},
		Relation:  string(r.Relation),
		To:        Ref{Type: EntityType(r.ToType), ID: string(r.ToID)},
		CreatedAt: r.Created.Time,
	}
}

func toStrings(in []string) codec.Slice[codec.String] {
	out := make(codec.Slice[codec.String], len(in))
	for i, s := range in {
		out[i] = codec.String(s)
	}
	return out
}

func fromStrings(in codec.Slice[codec.String]) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
