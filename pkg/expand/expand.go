// Package expand parses the opt-in ?expand= read parameter. Nothing is
// expanded unless the caller asks for it.
package expand

import (
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nutritrack/dietary/internal/platform/apperr"
)

// Set is the requested expansions, e.g. {"diet", "room"}.
type Set map[string]struct{}

// Parse splits a comma-separated list; blanks are ignored and names are
// lower-cased.
func Parse(raw string) Set {
	s := Set{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			s[part] = struct{}{}
		}
	}
	return s
}

// FromContext reads ?expand= and rejects names outside allowed.
func FromContext(c echo.Context, allowed ...string) (Set, error) {
	s := Parse(c.QueryParam("expand"))
	if err := s.Validate(allowed...); err != nil {
		return nil, err
	}
	return s, nil
}

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Set) Empty() bool { return len(s) == 0 }

func (s Set) Validate(allowed ...string) error {
	var unknown []string
	for name := range s {
		ok := false
		for _, a := range allowed {
			if name == a {
				ok = true
				break
			}
		}
		if !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return apperr.Validationf("Unsupported expand value(s): %s. Allowed: %s",
			strings.Join(unknown, ", "), strings.Join(allowed, ", "))
	}
	return nil
}
