package account

import (
	"reflect"
	"sort"
)

// collectMediaURLs walks every value of docs, including nested maps and
// slices, and returns the distinct strings owned by the blob store.
func collectMediaURLs(docs []map[string]any, owns func(string) bool) []string {
	seen := make(map[string]struct{})
	for _, doc := range docs {
		walkStrings(doc, func(value string) {
			if owns(value) {
				seen[value] = struct{}{}
			}
		})
	}

	urls := make([]string, 0, len(seen))
	for url := range seen {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

func walkStrings(value any, visit func(string)) {
	switch v := value.(type) {
	case string:
		visit(v)
	case *string:
		if v != nil {
			visit(*v)
		}
	case []string:
		for _, item := range v {
			visit(item)
		}
	case []any:
		for _, item := range v {
			walkStrings(item, visit)
		}
	case map[string]any:
		for _, item := range v {
			walkStrings(item, visit)
		}
	case map[string]string:
		for _, item := range v {
			visit(item)
		}
	case []map[string]any:
		for _, item := range v {
			walkStrings(item, visit)
		}
	default:
		walkReflect(reflect.ValueOf(value), visit)
	}
}

// walkReflect covers named container types a driver may decode into.
func walkReflect(v reflect.Value, visit func(string)) {
	switch v.Kind() {
	case reflect.String:
		visit(v.String())
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			walkStrings(v.Elem().Interface(), visit)
		}
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return
		}
		for i := 0; i < v.Len(); i++ {
			walkStrings(v.Index(i).Interface(), visit)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			walkStrings(iter.Value().Interface(), visit)
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				walkStrings(v.Field(i).Interface(), visit)
			}
		}
	}
}
