// Package envconf binds environment variables to struct fields.
//
//	type config struct {
//		Port    uint16        `env:"API_PORT" envDefault:"8080"`
//		DSN     string        `env:"PG_DSN"`
//		Brokers []string      `env:"KAFKA_BROKERS" envDefault:""`
//		Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
//		Redis   redisConfig   // untagged structs are loaded recursively
//	}
//
// A tag without envDefault is required. Slices are split on envSeparator,
// a comma by default, and empty items are dropped.
package envconf

import (
	"encoding"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingRequired = errors.New("missing required environment variable")
	ErrUnsupportedType = errors.New("unsupported field type")
)

var (
	durationType        = reflect.TypeFor[time.Duration]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Load fills the exported fields of the struct dst points to.
func Load(dst any) error {
	v := reflect.ValueOf(dst)
	if dst == nil || v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return errors.New("destination must be a non-nil pointer to a struct")
	}

	return loadStruct(v.Elem())
}

func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		err := loadField(sf, v.Field(i))
		if err != nil {
			return err
		}
	}

	return nil
}

func loadField(sf reflect.StructField, fv reflect.Value) error {
	name := sf.Tag.Get("env")

	if name == "" || name == "-" {
		return loadNested(sf, fv)
	}

	raw, ok := os.LookupEnv(name)
	if !ok {
		raw, ok = sf.Tag.Lookup("envDefault")
		if !ok {
			return fmt.Errorf("%w: %s (field %q)", ErrMissingRequired, name, sf.Name)
		}
	}

	sep := sf.Tag.Get("envSeparator")
	if sep == "" {
		sep = ","
	}

	err := set(fv, raw, sep)
	if err != nil {
		return fmt.Errorf("parse %s for field %q: %w", name, sf.Name, err)
	}

	return nil
}

// loadNested recurses into untagged struct and pointer-to-struct fields and
// leaves any other untagged field alone.
func loadNested(sf reflect.StructField, fv reflect.Value) error {
	switch {
	case fv.Kind() == reflect.Struct && !implementsText(fv):
	case fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.Struct:
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}

		fv = fv.Elem()
	default:
		return nil
	}

	err := loadStruct(fv)
	if err != nil {
		return fmt.Errorf("load %s: %w", sf.Name, err)
	}

	return nil
}

func implementsText(fv reflect.Value) bool {
	return reflect.PointerTo(fv.Type()).Implements(textUnmarshalerType)
}

//nolint:cyclop
func set(fv reflect.Value, raw, sep string) error {
	if fv.CanAddr() && implementsText(fv) {
		u, _ := fv.Addr().Interface().(encoding.TextUnmarshaler)
		return u.UnmarshalText([]byte(raw))
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}

		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if fv.Type() == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}

			fv.SetInt(int64(d))

			return nil
		}

		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}

		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}

		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return err
		}

		fv.SetFloat(f)
	case reflect.Slice:
		return setSlice(fv, raw, sep)
	case reflect.Pointer:
		elem := reflect.New(fv.Type().Elem())

		err := set(elem.Elem(), raw, sep)
		if err != nil {
			return err
		}

		fv.Set(elem)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, fv.Type())
	}

	return nil
}

func setSlice(fv reflect.Value, raw, sep string) error {
	out := reflect.MakeSlice(fv.Type(), 0, 4)

	for _, item := range strings.Split(raw, sep) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		elem := reflect.New(fv.Type().Elem()).Elem()

		err := set(elem, item, sep)
		if err != nil {
			return fmt.Errorf("item %q: %w", item, err)
		}

		out = reflect.Append(out, elem)
	}

	fv.Set(out)

	return nil
}
