package roster

import (
	"slices"

	"github.com/samber/lo"

	"github.com/Gopher0727/GuildWar/internal/model"
)

// RoleCounts tallies primary roles.
type RoleCounts struct {
	Tank   int `json:"tank"`
	Healer int `json:"healer"`
	DPS    int `json:"dps"`
	None   int `json:"none"`
	Total  int `json:"total"`
}

func countRoles(members []model.Member) RoleCounts {
	var c RoleCounts
	for _, m := range members {
		switch m.PrimaryRole {
		case model.RoleTank:
			c.Tank++
		case model.RoleHealer:
			c.Healer++
		case model.RoleDPS:
			c.DPS++
		default:
			c.None++
		}
	}
	c.Total = len(members)
	return c
}

// DayView is the derived board of one day: its teams, who sits in them,
// and who is still placeable.
type DayView struct {
	Day    model.Day      `json:"day"`
	Teams  []TeamCard     `json:"teams"`
	Seated []int64        `json:"seated"`
	Roster []model.Member `json:"roster"`
	Counts RoleCounts     `json:"counts"`
	// Error is the last failure recorded on the region's snapshot.
	Error string `json:"error,omitempty"`
}

// TeamCard is a team of the day board with the role tally of its members.
type TeamCard struct {
	model.Team
	Counts RoleCounts `json:"counts"`
}

// Partition derives the day view from a snapshot. It is recomputed on
// every call and keeps no state. Role counts cover the unseated day
// roster only.
func Partition(snap *model.Snapshot, day model.Day) DayView {
	teams := lo.Filter(snap.Teams, func(t model.Team, _ int) bool { return t.Day == day })

	seated := make(map[int64]struct{})
	var seatedIDs []int64
	for _, t := range teams {
		for _, m := range t.Members {
			if _, ok := seated[m.ID]; !ok {
				seated[m.ID] = struct{}{}
				seatedIDs = append(seatedIDs, m.ID)
			}
		}
	}

	roster := lo.Filter(snap.Members, func(m model.Member, _ int) bool {
		_, isSeated := seated[m.ID]
		return m.AvailableOn(day) && !isSeated
	})
	roster = SortByRole(roster)

	view := DayView{
		Day:    day,
		Teams:  make([]TeamCard, len(teams)),
		Seated: seatedIDs,
		Roster: roster,
		Counts: countRoles(roster),
		Error:  snap.Error,
	}
	for i, t := range teams {
		t.Members = SortByRole(t.Members)
		view.Teams[i] = TeamCard{Team: t, Counts: TeamCounts(t)}
	}
	if view.Seated == nil {
		view.Seated = []int64{}
	}
	return view
}

// SortByRole returns a copy ordered Tank, Healer, DPS, then unranked,
// keeping the relative order of equal roles.
func SortByRole(members []model.Member) []model.Member {
	out := slices.Clone(members)
	if out == nil {
		out = []model.Member{}
	}
	slices.SortStableFunc(out, func(a, b model.Member) int {
		return a.PrimaryRole.Rank() - b.PrimaryRole.Rank()
	})
	return out
}

// TeamCounts tallies the roles seated in a team, as shown on its card.
func TeamCounts(t model.Team) RoleCounts {
	return countRoles(t.Members)
}

// SlotStatus is the state of one member in one half hour of the overview.
type SlotStatus string

const (
	StatusParticipating    SlotStatus = "participating"
	StatusAssigned         SlotStatus = "assigned"
	StatusNotParticipating SlotStatus = "notParticipating"
)

// OverviewRow is one member's line of the availability grid.
type OverviewRow struct {
	Member model.Member `json:"member"`
	// Team is the name of the day team the member sits in, if any.
	Team  string       `json:"team,omitempty"`
	Cells []SlotStatus `json:"cells"`
}

// OverviewGrid is the member by slot availability table of one day.
type OverviewGrid struct {
	Day    model.Day        `json:"day"`
	Slots  []model.TimeSlot `json:"slots"`
	Rows   []OverviewRow    `json:"rows"`
	Counts RoleCounts       `json:"counts"`
}

// Overview lists every roster member against the slot grid of the day.
// A declared slot reads "assigned" when the member sits in a team that
// day, "participating" otherwise.
func Overview(snap *model.Snapshot, day model.Day) OverviewGrid {
	seatedIn := make(map[int64]string)
	for _, t := range snap.Teams {
		if t.Day != day {
			continue
		}
		for _, m := range t.Members {
			if _, ok := seatedIn[m.ID]; !ok {
				seatedIn[m.ID] = t.Name
			}
		}
	}

	slots := model.Slots(day)
	grid := OverviewGrid{
		Day:    day,
		Slots:  slots,
		Rows:   make([]OverviewRow, 0, len(snap.Members)),
		Counts: countRoles(snap.Members),
	}
	for _, m := range snap.Members {
		team, seated := seatedIn[m.ID]
		row := OverviewRow{Member: m, Team: team, Cells: make([]SlotStatus, len(slots))}
		for i, slot := range slots {
			switch {
			case !m.Slots.Has(slot):
				row.Cells[i] = StatusNotParticipating
			case seated:
				row.Cells[i] = StatusAssigned
			default:
				row.Cells[i] = StatusParticipating
			}
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}
