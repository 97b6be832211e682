// Package record defines how typed records map onto stored entries.
//
// Every record type has a key prefix, which separates types sharing one
// table, and a fields version, which detects schema drift. A stored entry is
//
//	key:   Uint32(KeyPrefix) ++ IndexKey
//	value: Uint32(FieldsVersion) ++ Fields
//
// Both hashes default to SDBM hashes of the type's declared shape and are
// stable across runs. A type may return any other constants instead, for
// example to place its keys right after another type's keys.
package record

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
	"github.com/ssargent/strata/pkg/codec"
)

// PrefixSize is the size of the encoded key prefix and fields version.
const PrefixSize = 4

// Record is a value that can be stored.
type Record interface {
	KeyPrefix() uint32
	FieldsVersion() uint32
	IndexKey() codec.Value
	Fields() codec.Value
}

// Decodable is implemented by pointers to records. Decode reads a record
// stored under the current FieldsVersion; key and fields are positioned just
// past the prefix and version.
type Decodable interface {
	Record
	Decode(key, fields *codec.Decoder) error
}

// Migrator is implemented by records that can be rebuilt from an entry
// written under an older FieldsVersion. Types without it fail such reads with
// *MigrationUnsupported.
type Migrator interface {
	Migrate(key, fields *codec.Decoder, version uint32) error
}

var (
	ErrPrefixMismatch       = errors.New("record: key prefix mismatch")
	ErrMigrationUnsupported = errors.New("record: migration unsupported")
)

// PrefixMismatch is returned when a stored key carries another type's prefix.
type PrefixMismatch struct {
	Type     string
	Expected uint32
	Found    uint32
}

func (e *PrefixMismatch) Error() string {
	return fmt.Sprintf("record: %s expects key prefix %d, found %d", e.Type, e.Expected, e.Found)
}

func (e *PrefixMismatch) Is(target error) bool { return target == ErrPrefixMismatch }

// MigrationUnsupported is returned when an entry was written under another
// fields version and the type cannot migrate it.
type MigrationUnsupported struct {
	Type     string
	Expected uint32
	Found    uint32
}

func (e *MigrationUnsupported) Error() string {
	return fmt.Sprintf("record: %s cannot migrate fields version %d to %d", e.Type, e.Found, e.Expected)
}

func (e *MigrationUnsupported) Is(target error) bool { return target == ErrMigrationUnsupported }

// TypeName returns the name of r's type, without pointer indirection.
func TypeName(r any) string {
	t := reflect.TypeOf(r)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}

// KeySize returns the encoded size of r's stored key.
func KeySize(r Record) int {
	return PrefixSize + r.IndexKey().SerializedSize()
}

// ValueSize returns the encoded size of r's stored value.
func ValueSize(r Record) int {
	return PrefixSize + r.Fields().SerializedSize()
}

// EncodeKey writes r's stored key into e.
func EncodeKey(e *codec.Encoder, r Record) {
	e.PutUint32(r.KeyPrefix())
	e.Put(r.IndexKey())
}

// EncodeValue writes r's stored value into e.
func EncodeValue(e *codec.Encoder, r Record) {
	e.PutUint32(r.FieldsVersion())
	e.Put(r.Fields())
}

// KeyFor writes the stored key of a record with the given prefix and index
// key into e.
func KeyFor(e *codec.Encoder, prefix uint32, key codec.Value) {
	e.PutUint32(prefix)
	e.Put(key)
}

// Split reads the prefix and version of a stored entry and returns decoders
// positioned at the index key and the fields.
func Split(key, value []byte) (prefix, version uint32, k, f *codec.Decoder, err error) {
	k, f = codec.NewDecoder(key), codec.NewDecoder(value)
	if prefix, err = k.Uint32(); err != nil {
		return 0, 0, nil, nil, errors.Wrap(err, "reading key prefix")
	}
	if version, err = f.Uint32(); err != nil {
		return 0, 0, nil, nil, errors.Wrap(err, "reading fields version")
	}
	return prefix, version, k, f, nil
}

// Load decodes a stored entry into r. It checks the key prefix, then decodes
// directly when the fields version matches or migrates when it does not.
// migrated reports whether Migrate was used, in which case the caller should
// rewrite the entry.
func Load(r Decodable, key, value []byte) (migrated bool, err error) {
	prefix, version, k, f, err := Split(key, value)
	if err != nil {
		return false, err
	}
	if prefix != r.KeyPrefix() {
		return false, &PrefixMismatch{Type: TypeName(r), Expected: r.KeyPrefix(), Found: prefix}
	}
	if version == r.FieldsVersion() {
		return false, r.Decode(k, f)
	}
	m, ok := r.(Migrator)
	if !ok {
		return false, &MigrationUnsupported{Type: TypeName(r), Expected: r.FieldsVersion(), Found: version}
	}
	if err := m.Migrate(k, f, version); err != nil {
		return false, err
	}
	return true, nil
}
