package store_test

import (
	"github.com/ssargent/strata/pkg/codec"
	"github.com/ssargent/strata/pkg/record"
)

// Greeting is the simplest record: one key component and one field.
type Greeting struct {
	Key   codec.String `strata:"key"`
	Value codec.String
}

var greetingSchema = record.MustSchema[Greeting]()

func (g Greeting) KeyPrefix() uint32     { return greetingSchema.KeyPrefix }
func (g Greeting) FieldsVersion() uint32 { return greetingSchema.FieldsVersion }
func (g Greeting) IndexKey() codec.Value { return greetingSchema.Key(g) }
func (g Greeting) Fields() codec.Value   { return greetingSchema.Fields(g) }
func (g *Greeting) Decode(key, fields *codec.Decoder) error {
	return greetingSchema.Decode(g, key, fields)
}

// Sample has a two component key.
type Sample struct {
	A codec.String `strata:"key"`
	B codec.Int    `strata:"key"`
	V codec.String
}

var sampleSchema = record.MustSchema[Sample]()

func (s Sample) KeyPrefix() uint32     { return sampleSchema.KeyPrefix }
func (s Sample) FieldsVersion() uint32 { return sampleSchema.FieldsVersion }
func (s Sample) IndexKey() codec.Value { return sampleSchema.Key(s) }
func (s Sample) Fields() codec.Value   { return sampleSchema.Fields(s) }
func (s *Sample) Decode(key, fields *codec.Decoder) error {
	return sampleSchema.Decode(s, key, fields)
}

// Above and Below share Sample's key shape and sit on the key prefixes
// directly after and before it.
type Above Sample

var aboveSchema = record.MustSchema[Above]().WithKeyPrefix(sampleSchema.KeyPrefix + 1)

func (s Above) KeyPrefix() uint32     { return aboveSchema.KeyPrefix }
func (s Above) FieldsVersion() uint32 { return aboveSchema.FieldsVersion }
func (s Above) IndexKey() codec.Value { return aboveSchema.Key(s) }
func (s Above) Fields() codec.Value   { return aboveSchema.Fields(s) }
func (s *Above) Decode(key, fields *codec.Decoder) error {
	return aboveSchema.Decode(s, key, fields)
}

type Below Sample

var belowSchema = record.MustSchema[Below]().WithKeyPrefix(sampleSchema.KeyPrefix - 1)

func (s Below) KeyPrefix() uint32     { return belowSchema.KeyPrefix }
func (s Below) FieldsVersion() uint32 { return belowSchema.FieldsVersion }
func (s Below) IndexKey() codec.Value { return belowSchema.Key(s) }
func (s Below) Fields() codec.Value   { return belowSchema.Fields(s) }
func (s *Below) Decode(key, fields *codec.Decoder) error {
	return belowSchema.Decode(s, key, fields)
}

// ContactV1 is the stored shape Contact migrates from.
type ContactV1 struct {
	Name codec.String `strata:"key"`
	Age  codec.Int
}

var contactV1Schema = record.MustSchema[ContactV1]()

func (c ContactV1) KeyPrefix() uint32     { return contactV1Schema.KeyPrefix }
func (c ContactV1) FieldsVersion() uint32 { return contactV1Schema.FieldsVersion }
func (c ContactV1) IndexKey() codec.Value { return contactV1Schema.Key(c) }
func (c ContactV1) Fields() codec.Value   { return contactV1Schema.Fields(c) }
func (c *ContactV1) Decode(key, fields *codec.Decoder) error {
	return contactV1Schema.Decode(c, key, fields)
}

type Contact struct {
	Name  codec.String `strata:"key"`
	Age   codec.Int32
	Email codec.Optional[codec.String]
}

var contactSchema = record.MustSchema[Contact]().WithKeyPrefix(contactV1Schema.KeyPrefix)

func (c Contact) KeyPrefix() uint32     { return contactSchema.KeyPrefix }
func (c Contact) FieldsVersion() uint32 { return contactSchema.FieldsVersion }
func (c Contact) IndexKey() codec.Value { return contactSchema.Key(c) }
func (c Contact) Fields() codec.Value   { return contactSchema.Fields(c) }
func (c *Contact) Decode(key, fields *codec.Decoder) error {
	return contactSchema.Decode(c, key, fields)
}

func (c *Contact) Migrate(key, fields *codec.Decoder, version uint32) error {
	if version != contactV1Schema.FieldsVersion {
		return &record.MigrationUnsupported{Type: "Contact", Expected: c.FieldsVersion(), Found: version}
	}
	var old ContactV1
	if err := old.Decode(key, fields); err != nil {
		return err
	}
	c.Name, c.Age, c.Email = old.Name, codec.Int32(old.Age), codec.None[codec.String]()
	return nil
}

// Event is keyed by time.
type Event struct {
	At   codec.Time `strata:"key"`
	Name codec.String
}

var eventSchema = record.MustSchema[Event]()

func (e Event) KeyPrefix() uint32     { return eventSchema.KeyPrefix }
func (e Event) FieldsVersion() uint32 { return eventSchema.FieldsVersion }
func (e Event) IndexKey() codec.Value { return eventSchema.Key(e) }
func (e Event) Fields() codec.Value   { return eventSchema.Fields(e) }
func (e *Event) Decode(key, fields *codec.Decoder) error {
	return eventSchema.Decode(e, key, fields)
}

// Author and Book model a parent/child relationship: a book's key embeds
// its author's key.
type Author struct {
	ID   codec.UUID `strata:"key"`
	Name codec.String
}

var authorSchema = record.MustSchema[Author]()

func (a Author) KeyPrefix() uint32     { return authorSchema.KeyPrefix }
func (a Author) FieldsVersion() uint32 { return authorSchema.FieldsVersion }
func (a Author) IndexKey() codec.Value { return authorSchema.Key(a) }
func (a Author) Fields() codec.Value   { return authorSchema.Fields(a) }
func (a *Author) Decode(key, fields *codec.Decoder) error {
	return authorSchema.Decode(a, key, fields)
}

type Book struct {
	Author codec.UUID  `strata:"key"`
	ID     codec.KSUID `strata:"key"`
	Title  codec.String
}

var bookSchema = record.MustSchema[Book]()

func (b Book) KeyPrefix() uint32     { return bookSchema.KeyPrefix }
func (b Book) FieldsVersion() uint32 { return bookSchema.FieldsVersion }
func (b Book) IndexKey() codec.Value { return bookSchema.Key(b) }
func (b Book) Fields() codec.Value   { return bookSchema.Fields(b) }
func (b *Book) Decode(key, fields *codec.Decoder) error {
	return bookSchema.Decode(b, key, fields)
}

// Blob stores an arbitrary payload.
type Blob struct {
	ID   codec.Uint64 `strata:"key"`
	Data codec.Bytes
}

var blobSchema = record.MustSchema[Blob]()

func (b Blob) KeyPrefix() uint32     { return blobSchema.KeyPrefix }
func (b Blob) FieldsVersion() uint32 { return blobSchema.FieldsVersion }
func (b Blob) IndexKey() codec.Value { return blobSchema.Key(b) }
func (b Blob) Fields() codec.Value   { return blobSchema.Fields(b) }
func (b *Blob) Decode(key, fields *codec.Decoder) error {
	return blobSchema.Decode(b, key, fields)
}
