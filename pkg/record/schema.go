package record

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/ssargent/strata/pkg/codec"
)

// TagName is the struct tag read by SchemaOf. `strata:"key"` marks an index
// key component and `strata:"-"` excludes a field from storage.
const TagName = "strata"

var (
	valueType        = reflect.TypeOf((*codec.Value)(nil)).Elem()
	deserializerType = reflect.TypeOf((*codec.Deserializable)(nil)).Elem()
)

// Schema is the storage shape of a struct type, derived by reflection. Record
// implementations can delegate to it instead of listing their fields by hand:
//
//	type Person struct {
//	    Name codec.String `strata:"key"`
//	    Age  codec.Int
//	}
//
//	var personSchema = record.MustSchema[Person]()
//
//	func (p Person) KeyPrefix() uint32        { return personSchema.KeyPrefix }
//	func (p Person) FieldsVersion() uint32    { return personSchema.FieldsVersion }
//	func (p Person) IndexKey() codec.Value    { return personSchema.Key(p) }
//	func (p Person) Fields() codec.Value      { return personSchema.Fields(p) }
//	func (p *Person) Decode(k, f *codec.Decoder) error { return personSchema.Decode(p, k, f) }
type Schema struct {
	Name          string
	KeyPrefix     uint32
	FieldsVersion uint32
	KeyTypes      []string
	FieldTypes    []string

	typ    reflect.Type
	keys   []int
	fields []int
}

// SchemaOf derives the schema of struct type T. Stored fields must be codec
// values whose pointers are Deserializable. Key components keep their
// declaration order, as do the remaining fields.
func SchemaOf[T any]() (*Schema, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, errors.Errorf("record: %s is not a struct", typ)
	}

	s := &Schema{Name: typ.Name(), typ: typ}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get(TagName)
		if !f.IsExported() || tag == "-" {
			continue
		}
		if !f.Type.Implements(valueType) || !reflect.PointerTo(f.Type).Implements(deserializerType) {
			return nil, errors.Errorf("record: %s.%s has type %s, which is not a codec value", typ.Name(), f.Name, f.Type)
		}
		if tag == "key" {
			s.keys = append(s.keys, i)
			s.KeyTypes = append(s.KeyTypes, typeName(f.Type))
		} else {
			s.fields = append(s.fields, i)
			s.FieldTypes = append(s.FieldTypes, typeName(f.Type))
		}
	}
	if len(s.keys) == 0 {
		return nil, errors.Errorf("record: %s has no field tagged %s:\"key\"", typ.Name(), TagName)
	}

	s.KeyPrefix = PrefixOf(s.Name)
	s.FieldsVersion = VersionOf(s.FieldTypes...)
	return s, nil
}

// MustSchema is SchemaOf that panics on error, for package-level variables.
func MustSchema[T any]() *Schema {
	s, err := SchemaOf[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// WithKeyPrefix returns a copy of s using prefix.
func (s *Schema) WithKeyPrefix(prefix uint32) *Schema {
	c := *s
	c.KeyPrefix = prefix
	return &c
}

// WithFieldsVersion returns a copy of s using version.
func (s *Schema) WithFieldsVersion(version uint32) *Schema {
	c := *s
	c.FieldsVersion = version
	return &c
}

// Key returns the index key of v, a T or *T.
func (s *Schema) Key(v any) codec.Value {
	return s.tuple(v, s.keys)
}

// Fields returns the non-key fields of v, a T or *T.
func (s *Schema) Fields(v any) codec.Value {
	if len(s.fields) == 0 {
		return codec.Empty{}
	}
	return s.tuple(v, s.fields)
}

// Decode reads the index key and fields into v, which must be a *T.
func (s *Schema) Decode(v any, key, fields *codec.Decoder) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Type() != s.typ {
		return errors.Errorf("record: decode %s into %T", s.Name, v)
	}
	rv = rv.Elem()
	if err := s.pointers(rv, s.keys).Deserialize(key); err != nil {
		return errors.Wrapf(err, "decoding %s key", s.Name)
	}
	if err := s.pointers(rv, s.fields).Deserialize(fields); err != nil {
		return errors.Wrapf(err, "decoding %s fields", s.Name)
	}
	return nil
}

func (s *Schema) tuple(v any, idx []int) codec.Tuple {
	rv := reflect.Indirect(reflect.ValueOf(v))
	out := make(codec.Tuple, len(idx))
	for i, f := range idx {
		out[i] = rv.Field(f).Interface().(codec.Value)
	}
	return out
}

func (s *Schema) pointers(rv reflect.Value, idx []int) codec.Tuple {
	out := make(codec.Tuple, len(idx))
	for i, f := range idx {
		out[i] = rv.Field(f).Addr().Interface().(codec.Value)
	}
	return out
}

// typeName is the unqualified name of t, with generic arguments unqualified too.
func typeName(t reflect.Type) string {
	name := t.Name()
	if name == "" {
		return t.String()
	}
	if i := strings.IndexByte(name, '['); i >= 0 {
		args := strings.Split(name[i+1:len(name)-1], ",")
		for j, a := range args {
			if k := strings.LastIndexByte(a, '.'); k >= 0 {
				args[j] = a[k+1:]
			}
		}
		name = name[:i] + "[" + strings.Join(args, ",") + "]"
	}
	return name
}
