package resource

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrMissingParam is returned when a required path parameter is absent or empty.
var ErrMissingParam = errors.New("missing path parameter")

// Descriptor is everything a source needs to fetch one resource.
type Descriptor struct {
	Family Family
	Params Params
	Key    Key
}

// NewDescriptor validates params against the family and builds its key.
// Only the parameters the family requires are kept, so extra parameters
// never split the cache.
func NewDescriptor(family Family, params Params) (Descriptor, error) {
	if !family.Valid() {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownFamily, string(family))
	}

	required := family.RequiredParams()
	kept := make(Params, len(required))
	for _, name := range required {
		v := params[name]
		if v == "" {
			return Descriptor{}, fmt.Errorf("%w: %s requires %q", ErrMissingParam, family, name)
		}
		kept[name] = v
	}

	return Descriptor{
		Family: family,
		Params: kept,
		Key:    NewKey(family, kept),
	}, nil
}

// Param returns a path parameter, escaped for use in a URL path segment.
func (d Descriptor) Param(name string) string {
	return url.PathEscape(d.Params[name])
}
