package config

import (
	"reflect"
	"strings"
)

// diffEvent compares two settings structs (or pointers to them) and lists the
// dotted keys of the leaf fields that differ. Untagged fields use their Go
// name.
func diffEvent(old, new any) Event {
	evt := Event{OldConfig: old, NewConfig: new}
	if old == nil || new == nil {
		return evt
	}

	ov, nv := reflect.ValueOf(old), reflect.ValueOf(new)
	if ov.Kind() == reflect.Pointer {
		ov = ov.Elem()
	}
	if nv.Kind() == reflect.Pointer {
		nv = nv.Elem()
	}
	if ov.Kind() != reflect.Struct || ov.Type() != nv.Type() {
		return evt
	}

	evt.ChangedKeys = diffStruct(ov, nv, "", nil)
	return evt
}

func diffStruct(ov, nv reflect.Value, prefix string, out []string) []string {
	t := ov.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		key := fieldKey(f)
		if prefix != "" {
			key = prefix + "." + key
		}
		of, nf := ov.Field(i), nv.Field(i)
		if f.Type.Kind() == reflect.Struct {
			out = diffStruct(of, nf, key, out)
			continue
		}
		if !reflect.DeepEqual(of.Interface(), nf.Interface()) {
			out = append(out, key)
		}
	}
	return out
}

func fieldKey(f reflect.StructField) string {
	if tag, _, _ := strings.Cut(f.Tag.Get("config"), ","); tag != "" && tag != "-" {
		return tag
	}
	return f.Name
}
