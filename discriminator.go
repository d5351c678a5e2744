package relay

import "github.com/tidwall/match"

// Discriminator recognises a message type from a View. Discriminators are
// cheap compared to unmarshaling the payload.
type Discriminator interface {
	Match(v View) bool
}

// MatchFunc adapts a function to Discriminator.
type MatchFunc func(v View) bool

// Match implements Discriminator.
func (f MatchFunc) Match(v View) bool { return f(v) }

// HasFields matches when every path exists.
func HasFields(paths ...string) Discriminator {
	return MatchFunc(func(v View) bool {
		for _, p := range paths {
			if _, ok := v.Get(p); !ok {
				return false
			}
		}
		return true
	})
}

// FieldEquals matches when path holds the string value.
func FieldEquals(path, value string) Discriminator {
	return MatchFunc(func(v View) bool {
		s, ok := stringAt(v, path)
		return ok && s == value
	})
}

// FieldMatches matches when path holds a string matching pattern, where '*'
// matches any run of characters and '?' any single character:
//
//	relay.FieldMatches("type", "order.*")
func FieldMatches(path, pattern string) Discriminator {
	return MatchFunc(func(v View) bool {
		s, ok := stringAt(v, path)
		return ok && match.Match(s, pattern)
	})
}

// TypeField matches documents whose "type" field equals name, the common
// {"type": ..., "payload": ...} layout.
func TypeField(name string) Discriminator {
	return FieldEquals("type", name)
}

// And matches when all discriminators match.
func And(ds ...Discriminator) Discriminator {
	return MatchFunc(func(v View) bool {
		for _, d := range ds {
			if !d.Match(v) {
				return false
			}
		}
		return true
	})
}

// Or matches when any discriminator matches.
func Or(ds ...Discriminator) Discriminator {
	return MatchFunc(func(v View) bool {
		for _, d := range ds {
			if d.Match(v) {
				return true
			}
		}
		return false
	})
}

// Not inverts d.
func Not(d Discriminator) Discriminator {
	return MatchFunc(func(v View) bool { return !d.Match(v) })
}
