// Package resource describes the FPL resources served by the proxy: the fixed
// set of resource families, their path parameters, deterministic cache keys
// and the mapping of a resource onto upstream paths.
package resource

import (
	"errors"
	"fmt"
)

// Family identifies one of the proxied endpoint shapes.
type Family string

const (
	// FamilyBootstrap is the bootstrap-static payload (teams, players, gameweeks).
	FamilyBootstrap Family = "bootstrap"

	// FamilyFixtures is the full fixture list.
	FamilyFixtures Family = "fixtures"

	// FamilyElementSummary is the per-player history and fixtures.
	FamilyElementSummary Family = "element-summary"

	// FamilyLiveEvent is live points for one gameweek.
	FamilyLiveEvent Family = "live-event"

	// FamilyPicks is a manager's picks for one gameweek.
	FamilyPicks Family = "picks"

	// FamilyManager is a manager's entry summary.
	FamilyManager Family = "manager"

	// FamilyManagerTransfers is a manager's transfer history.
	FamilyManagerTransfers Family = "manager-transfers"

	// FamilyManagerHistory is a manager's season history.
	FamilyManagerHistory Family = "manager-history"

	// FamilyLeague is one page of classic league standings.
	FamilyLeague Family = "league"

	// FamilyLeagueByPhase is classic league standings for one phase (month).
	FamilyLeagueByPhase Family = "league-by-phase"
)

// ErrUnknownFamily is returned when a family name is not recognised.
var ErrUnknownFamily = errors.New("unknown resource family")

var families = []Family{
	FamilyBootstrap,
	FamilyFixtures,
	FamilyElementSummary,
	FamilyLiveEvent,
	FamilyPicks,
	FamilyManager,
	FamilyManagerTransfers,
	FamilyManagerHistory,
	FamilyLeague,
	FamilyLeagueByPhase,
}

// Families returns every known family in a stable order.
func Families() []Family {
	out := make([]Family, len(families))
	copy(out, families)
	return out
}

// ParseFamily validates a family name.
func ParseFamily(name string) (Family, error) {
	f := Family(name)
	if f.Valid() {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFamily, name)
}

// Valid reports whether f is one of the known families.
func (f Family) Valid() bool {
	for _, known := range families {
		if f == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (f Family) String() string {
	return string(f)
}

// RequiredParams returns the path parameters a family needs, sorted by name.
func (f Family) RequiredParams() []string {
	switch f {
	case FamilyElementSummary, FamilyManager, FamilyManagerTransfers, FamilyManagerHistory:
		return []string{ParamID}
	case FamilyLiveEvent:
		return []string{ParamGameweek}
	case FamilyPicks:
		return []string{ParamGameweek, ParamManagerID}
	case FamilyLeague:
		return []string{ParamLeagueID, ParamPage}
	case FamilyLeagueByPhase:
		return []string{ParamLeagueID, ParamPhase}
	default:
		return nil
	}
}
