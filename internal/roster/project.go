package roster

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/Gopher0727/GuildWar/internal/model"
	"github.com/Gopher0727/GuildWar/internal/remote"
)

// signupInfo is what a member declared for the event.
type signupInfo struct {
	slots []string
	notes string
}

// Project turns the wire event of a region into a snapshot. Every signed-up
// user stays in the roster whether or not they sit in a team, and team
// members carry the same availability as their roster record.
//
// The returned warnings name slot tokens and teams that could not be
// understood and were left out.
func Project(region model.Region, ev *remote.Event) (*model.Snapshot, []string) {
	snap := model.NewSnapshot(region)
	if ev == nil {
		return snap, nil
	}
	snap.EventID = ev.ID
	snap.WeekStartDate = ev.WeekStartDate
	snap.HasEvent = true

	var warnings []string
	signups := lo.UniqBy(ev.Signups, signupUserID)
	lookup := lo.SliceToMap(signups, func(s remote.Signup) (int64, signupInfo) {
		return signupUserID(s), signupInfo{slots: s.TimeSlots, notes: lo.FromPtr(s.Notes)}
	})

	snap.Members = lo.Map(signups, func(s remote.Signup, _ int) model.Member {
		user := s.User
		user.ID = signupUserID(s)
		m, bad := toMember(user, lookup[user.ID], region)
		warnings = append(warnings, bad...)
		return m
	})

	for _, t := range ev.Teams {
		team, err := toTeam(t, lookup, region)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		snap.Teams = append(snap.Teams, team)
	}
	return snap, lo.Uniq(warnings)
}

// projectTeam converts a team returned by a create call, re-hydrating its
// members from the roster already held.
func projectTeam(t remote.Team, roster []model.Member, region model.Region) (model.Team, error) {
	lookup := make(map[int64]signupInfo, len(roster))
	for _, m := range roster {
		lookup[m.ID] = signupInfo{slots: lo.Map(m.Slots.Tokens(), func(s model.TimeSlot, _ int) string { return string(s) }), notes: m.Notes}
	}
	return toTeam(t, lookup, region)
}

func toTeam(t remote.Team, lookup map[int64]signupInfo, region model.Region) (model.Team, error) {
	day, err := model.ParseDay(t.Day)
	if err != nil {
		return model.Team{}, fmt.Errorf("team %d skipped: %w", t.ID, err)
	}
	members := lo.UniqBy(t.Members, memberID)
	return model.Team{
		ID:          t.ID,
		Name:        t.Name,
		Day:         day,
		Description: lo.FromPtr(t.Description),
		Members: lo.Map(members, func(tm remote.TeamMember, _ int) model.Member {
			user := tm.User
			user.ID = memberID(tm)
			m, _ := toMember(user, lookup[user.ID], region)
			return m
		}),
	}, nil
}

func signupUserID(s remote.Signup) int64 {
	if s.User.ID != 0 {
		return s.User.ID
	}
	return s.UserID
}

// memberID prefers the embedded user id and falls back to the join column.
func memberID(tm remote.TeamMember) int64 {
	if tm.User.ID != 0 {
		return tm.User.ID
	}
	return tm.UserID
}

func toMember(u remote.User, info signupInfo, fallback model.Region) (model.Member, []string) {
	slots, rejected := model.NewSlotSet(info.slots...)

	region, err := model.ParseRegion(u.Region)
	if err != nil {
		region = fallback
	}

	m := model.Member{
		ID:            u.ID,
		Name:          u.Username,
		PrimaryRole:   model.ParseRole(lo.FromPtr(u.PrimaryRole)),
		SecondaryRole: model.ParseRole(lo.FromPtr(u.SecondaryRole)),
		Region:        region,
		Slots:         slots,
		Notes:         info.notes,
	}
	if pair, ok := model.NewClassPair(u.PrimaryClass); ok {
		m.PrimaryClass = pair
	}
	if pair, ok := model.NewClassPair(u.SecondaryClass); ok {
		m.SecondaryClass = &pair
	}

	warnings := lo.Map(rejected, func(tok string, _ int) string {
		return fmt.Sprintf("member %d: unknown time slot %q dropped", u.ID, tok)
	})
	return m, warnings
}
