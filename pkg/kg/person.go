package kg

import "context"

// FindPerson returns the stored Person to link to for the given names and
// ORCID, or nil when a new Person must be built.
//
// With an ORCID only a Person carrying that ORCID matches. Without one, a
// Person with the same names matches only if it has no ORCID of its own, so
// people sharing a name are never merged into someone else's record.
func FindPerson(ctx context.Context, store Store, givenName, familyName, orcid string) (*Person, error) {
	if orcid != "" {
		people, err := store.List(ctx, ListOptions{
			Type:    TypePerson,
			Scope:   ScopeAny,
			Filters: []Filter{{Path: []string{"digitalIdentifiers", "identifier"}, Value: orcid}},
			Size:    1,
		})
		if err != nil {
			return nil, err
		}

		for _, node := range people {
			if person, ok := node.(*Person); ok {
				return person, nil
			}
		}

		return nil, nil
	}

	people, err := store.List(ctx, ListOptions{
		Type:  TypePerson,
		Scope: ScopeAny,
		Filters: []Filter{
			{Path: []string{"givenName"}, Value: givenName},
			{Path: []string{"familyName"}, Value: familyName},
		},
	})
	if err != nil {
		return nil, err
	}

	for _, node := range people {
		person, ok := node.(*Person)
		if !ok {
			continue
		}

		id, err := ORCIDOf(ctx, store, person, ScopeAny)
		if err != nil {
			return nil, err
		}

		if id == "" {
			return person, nil
		}
	}

	return nil, nil
}

// ORCIDOf returns the first ORCID among the digital identifiers of person,
// or "" when it has none. Links typed as another identifier kind are skipped
// without being loaded.
func ORCIDOf(ctx context.Context, store Store, person *Person, scope Scope) (string, error) {
	for _, link := range person.DigitalIdentifiers {
		if link == nil {
			continue
		}

		if link.Node() == nil && link.Type != "" && link.Type != TypeORCID {
			continue
		}

		node, err := store.Resolve(ctx, link, scope)
		if err != nil {
			return "", err
		}

		if orcid, ok := node.(*ORCID); ok {
			return orcid.Identifier, nil
		}
	}

	return "", nil
}
