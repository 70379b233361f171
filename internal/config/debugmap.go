package config

import (
	"reflect"
)

const hiddenValue = "(hidden)"

func debugMap(v any) map[string]any {
	rv := reflect.Indirect(reflect.ValueOf(v))
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		value := rv.Field(i)
		switch {
		case field.Tag.Get("debugmap") == "hidden":
			if value.IsZero() {
				out[field.Name] = ""
			} else {
				out[field.Name] = hiddenValue
			}
		case value.Kind() == reflect.Struct && field.Type.PkgPath() == rt.PkgPath():
			out[field.Name] = debugMap(value.Interface())
		default:
			out[field.Name] = value.Interface()
		}
	}
	return out
}
