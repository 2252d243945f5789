package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Member is a guild member registered for the current event cycle.
type Member struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	PrimaryClass   ClassPair  `json:"primaryClass"`
	SecondaryClass *ClassPair `json:"secondaryClass"`
	PrimaryRole    Role       `json:"primaryRole"`
	SecondaryRole  Role       `json:"secondaryRole,omitempty"`
	Region         Region     `json:"region"`
	Slots          SlotSet    `json:"timeSlots"`
	Notes          string     `json:"notes,omitempty"`
}

// AvailableOn reports whether the member declared any slot on the day.
func (m Member) AvailableOn(day Day) bool {
	return m.Slots.HasDay(day)
}

// Team is an assignment bucket for one day of one region's event.
// Members are copies re-hydrated from the region roster; the canonical
// record stays in Snapshot.Members.
type Team struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Day         Day      `json:"day"`
	Description string   `json:"description,omitempty"`
	Members     []Member `json:"members"`
}

// Has reports whether the member is listed in the team.
func (t Team) Has(memberID int64) bool {
	return t.indexOf(memberID) >= 0
}

func (t Team) indexOf(memberID int64) int {
	return slices.IndexFunc(t.Members, func(m Member) bool { return m.ID == memberID })
}

// ContainerKind tells the roster list apart from a team.
type ContainerKind string

const (
	KindRoster ContainerKind = "roster"
	KindTeam   ContainerKind = "team"
)

// Container is either the general roster or one specific team.
type Container struct {
	Kind   ContainerKind `json:"kind"`
	TeamID int64         `json:"teamId,omitempty"`
}

// Roster is the general roster container.
func Roster() Container {
	return Container{Kind: KindRoster}
}

// InTeam is the container of the given team.
func InTeam(teamID int64) Container {
	return Container{Kind: KindTeam, TeamID: teamID}
}

func (c Container) IsRoster() bool {
	return c.Kind == KindRoster
}

func (c Container) IsTeam() bool {
	return c.Kind == KindTeam
}

func (c Container) Validate() error {
	switch c.Kind {
	case KindRoster:
		if c.TeamID != 0 {
			return fmt.Errorf("roster container must not carry a team id")
		}
		return nil
	case KindTeam:
		if c.TeamID <= 0 {
			return fmt.Errorf("team container requires a team id")
		}
		return nil
	default:
		return fmt.Errorf("unknown container kind %q", c.Kind)
	}
}

func (c Container) String() string {
	if c.IsTeam() {
		return fmt.Sprintf("team:%d", c.TeamID)
	}
	return string(c.Kind)
}

func (c *Container) UnmarshalJSON(data []byte) error {
	type plain Container
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := Container(p).Validate(); err != nil {
		return err
	}
	*c = Container(p)
	return nil
}

// Snapshot is the per-region view of the remote state.
type Snapshot struct {
	Region        Region    `json:"region"`
	EventID       int64     `json:"eventId"`
	WeekStartDate string    `json:"weekStartDate,omitempty"`
	HasEvent      bool      `json:"hasEvent"`
	Members       []Member  `json:"members"`
	Teams         []Team    `json:"teams"`
	Loading       bool      `json:"loading"`
	Error         string    `json:"error,omitempty"`
	LastFetched   time.Time `json:"lastFetched"`
}

// NewSnapshot returns the empty snapshot of a region.
func NewSnapshot(region Region) *Snapshot {
	return &Snapshot{Region: region, Members: []Member{}, Teams: []Team{}}
}

// Clone deep-copies the member and team lists.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.Members = slices.Clone(s.Members)
	out.Teams = make([]Team, len(s.Teams))
	for i, t := range s.Teams {
		t.Members = slices.Clone(t.Members)
		out.Teams[i] = t
	}
	return &out
}

// Member finds a member of the roster.
func (s *Snapshot) Member(id int64) (Member, bool) {
	i := slices.IndexFunc(s.Members, func(m Member) bool { return m.ID == id })
	if i < 0 {
		return Member{}, false
	}
	return s.Members[i], true
}

// Team finds a team by id.
func (s *Snapshot) Team(id int64) (*Team, bool) {
	for i := range s.Teams {
		if s.Teams[i].ID == id {
			return &s.Teams[i], true
		}
	}
	return nil, false
}

// Find resolves a member inside a container.
func (s *Snapshot) Find(memberID int64, in Container) (Member, bool) {
	if in.IsRoster() {
		return s.Member(memberID)
	}
	team, ok := s.Team(in.TeamID)
	if !ok {
		return Member{}, false
	}
	i := team.indexOf(memberID)
	if i < 0 {
		return Member{}, false
	}
	return team.Members[i], true
}

// SeatOn returns the team of the given day the member sits in, skipping
// the excluded team id.
func (s *Snapshot) SeatOn(memberID int64, day Day, exclude int64) (*Team, bool) {
	for i := range s.Teams {
		t := &s.Teams[i]
		if t.ID == exclude || t.Day != day {
			continue
		}
		if t.Has(memberID) {
			return t, true
		}
	}
	return nil, false
}

// IsSeated reports whether the member sits in any team of any day.
func (s *Snapshot) IsSeated(memberID int64) bool {
	return slices.ContainsFunc(s.Teams, func(t Team) bool { return t.Has(memberID) })
}

// RemoveFromTeam drops a member from a team's list.
func (s *Snapshot) RemoveFromTeam(teamID, memberID int64) {
	t, ok := s.Team(teamID)
	if !ok {
		return
	}
	t.Members = slices.DeleteFunc(t.Members, func(m Member) bool { return m.ID == memberID })
}

// AppendToTeam adds a member at the end of a team's list.
func (s *Snapshot) AppendToTeam(teamID int64, m Member) {
	t, ok := s.Team(teamID)
	if !ok || t.Has(m.ID) {
		return
	}
	t.Members = append(t.Members, m)
}
