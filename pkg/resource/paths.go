package resource

import (
	"fmt"
	"net/url"
)

// PrimaryPath maps a descriptor onto the FPL API path, relative to the API base
// (e.g. https://fantasy.premierleague.com/api).
func PrimaryPath(d Descriptor) (string, bool) {
	switch d.Family {
	case FamilyBootstrap:
		return "/bootstrap-static/", true
	case FamilyFixtures:
		return "/fixtures/", true
	case FamilyElementSummary:
		return fmt.Sprintf("/element-summary/%s/", d.Param(ParamID)), true
	case FamilyLiveEvent:
		return fmt.Sprintf("/event/%s/live/", d.Param(ParamGameweek)), true
	case FamilyPicks:
		return fmt.Sprintf("/entry/%s/event/%s/picks/", d.Param(ParamManagerID), d.Param(ParamGameweek)), true
	case FamilyManager:
		return fmt.Sprintf("/entry/%s/", d.Param(ParamID)), true
	case FamilyManagerTransfers:
		return fmt.Sprintf("/entry/%s/transfers/", d.Param(ParamID)), true
	case FamilyManagerHistory:
		return fmt.Sprintf("/entry/%s/history/", d.Param(ParamID)), true
	case FamilyLeague:
		q := url.Values{"page_standings": {d.Params[ParamPage]}}
		return fmt.Sprintf("/leagues-classic/%s/standings/?%s", d.Param(ParamLeagueID), q.Encode()), true
	case FamilyLeagueByPhase:
		q := url.Values{"page_standings": {"1"}, "phase": {d.Params[ParamPhase]}}
		return fmt.Sprintf("/leagues-classic/%s/standings/?%s", d.Param(ParamLeagueID), q.Encode()), true
	default:
		return "", false
	}
}

// SeasonArchivePath returns a path mapper for the static season archive that
// mirrors bootstrap-static and fixtures as JSON files per season.
func SeasonArchivePath(season string) func(Descriptor) (string, bool) {
	return func(d Descriptor) (string, bool) {
		switch d.Family {
		case FamilyBootstrap:
			return "/" + season + "/bootstrap-static.json", true
		case FamilyFixtures:
			return "/" + season + "/fixtures.json", true
		default:
			return "", false
		}
	}
}

// SnapshotName returns the name of the static snapshot holding a family, if any.
// Snapshots are not parameterised: live-event maps to one snapshot regardless
// of the gameweek.
func SnapshotName(d Descriptor) (string, bool) {
	switch d.Family {
	case FamilyBootstrap:
		return "bootstrap-static", true
	case FamilyFixtures:
		return "fixtures", true
	case FamilyLiveEvent:
		return "live-event", true
	default:
		return "", false
	}
}
