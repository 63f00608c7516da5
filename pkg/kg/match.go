package kg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AccountFunc resolves the account behind a bearer token, for stores that
// keep no user directory of their own.
type AccountFunc func(ctx context.Context, token string) (*Account, error)

// StaticAccount returns an AccountFunc that ignores the token.
func StaticAccount(account Account) AccountFunc {
	return func(context.Context, string) (*Account, error) {
		a := account
		return &a, nil
	}
}

// DocLookup loads the document of an instance by identifier.
type DocLookup func(ctx context.Context, id string) (map[string]any, error)

// MatchFilters reports whether doc satisfies every filter. Paths step
// through embedded objects and through references, which are loaded with
// lookup; references that cannot be found do not match. A value matches a
// string, a number or the identifier (UUID or IRI) of a referenced instance.
func MatchFilters(ctx context.Context, doc map[string]any, filters []Filter, lookup DocLookup) (bool, error) {
	for _, filter := range filters {
		values := []any{Compact(doc)}

		for _, name := range filter.Path {
			var next []any

			for _, value := range values {
				obj, ok := value.(map[string]any)
				if !ok {
					continue
				}

				if isReference(obj) {
					target, err := lookup(ctx, fmt.Sprint(obj["@id"]))
					if IsNotFound(err) {
						continue
					}

					if err != nil {
						return false, err
					}

					obj = Compact(target)
				}

				next = append(next, flatten(obj[name])...)
			}

			values = next
		}

		if !anyEqual(values, filter.Value) {
			return false, nil
		}
	}

	return true, nil
}

func isReference(obj map[string]any) bool {
	if _, ok := obj["@id"]; !ok {
		return false
	}

	for key := range obj {
		if !strings.HasPrefix(key, "@") {
			return false
		}
	}

	return true
}

func flatten(value any) []any {
	if list, ok := value.([]any); ok {
		return list
	}

	if value == nil {
		return nil
	}

	return []any{value}
}

func anyEqual(values []any, want string) bool {
	for _, value := range values {
		switch v := value.(type) {
		case string:
			if v == want {
				return true
			}
		case map[string]any:
			if id, ok := v["@id"].(string); ok && (id == want || id == URIFromUUID(want)) {
				return true
			}
		case json.Number:
			if v.String() == want {
				return true
			}
		case float64:
			if fmt.Sprint(v) == want {
				return true
			}
		}
	}

	return false
}
