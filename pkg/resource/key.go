package resource

import (
	"net/url"
	"sort"
	"strings"
)

// Path parameter names.
const (
	ParamID        = "id"
	ParamGameweek  = "gw"
	ParamManagerID = "manager_id"
	ParamLeagueID  = "league_id"
	ParamPage      = "page"
	ParamPhase     = "phase"
)

// Params holds already-validated path parameters for one request.
type Params map[string]string

// Key uniquely identifies a cacheable resource.
// Keys are plain strings so they are comparable and usable as map keys.
type Key string

// NewKey generates a deterministic key for a family and its parameters.
// Format: fpl:family:param1=val1:param2=val2 (parameters sorted by name,
// names and values query-escaped)
//
// Example:
//
//	fpl:picks:gw=7:manager_id=123456
func NewKey(family Family, params Params) Key {
	parts := []string{"fpl", string(family)}

	if len(params) > 0 {
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, url.QueryEscape(name)+"="+url.QueryEscape(params[name]))
		}
	}

	return Key(strings.Join(parts, ":"))
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}
