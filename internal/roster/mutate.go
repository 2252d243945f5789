package roster

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/Gopher0727/GuildWar/internal/model"
	"github.com/Gopher0727/GuildWar/internal/remote"
)

// Move places a member between the roster and teams of a region.
//
// Moving into a team is validated first: the member must have declared a
// slot on the team's day and must not sit in another team of that day.
// Leaving a team is always allowed. The remote removal runs before the
// assignment; if the assignment then fails the region is re-fetched rather
// than rolled back. Local state changes only after both calls succeed.
//
// A same-container move, or one whose member or destination team is no
// longer there, does nothing and returns nil.
func (e *Engine) Move(ctx context.Context, region model.Region, memberID int64, from, to model.Container) error {
	if !region.IsValid() {
		return model.ErrUnknownRegion
	}
	if err := from.Validate(); err != nil {
		return err
	}
	if err := to.Validate(); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	release, err := e.begin(fmt.Sprintf("move:%s:%d", region, memberID))
	if err != nil {
		return err
	}
	defer release()

	member, proceed, err := e.validateMove(region, memberID, from, to)
	if err != nil || !proceed {
		return err
	}

	if from.IsTeam() {
		if err := e.remote.RemoveUserFromTeam(ctx, from.TeamID, memberID); err != nil {
			return e.fail(region, "remove member from team", err)
		}
	}
	if to.IsTeam() {
		if err := e.remote.AssignUserToTeam(ctx, to.TeamID, memberID); err != nil {
			// The removal may already be persisted: trust the server's state.
			if ferr := e.FetchEvent(context.WithoutCancel(ctx), region, true); ferr != nil {
				e.logger.Warn("reconcile after failed assign", zap.Error(ferr))
			}
			return e.fail(region, "assign member to team", err)
		}
	}

	e.commit(region, func(snap *model.Snapshot) {
		if from.IsTeam() {
			snap.RemoveFromTeam(from.TeamID, memberID)
		}
		if to.IsTeam() {
			if canonical, ok := snap.Member(memberID); ok {
				member = canonical
			}
			snap.AppendToTeam(to.TeamID, member)
		}
	})
	e.logger.Info("member moved",
		zap.String("region", string(region)),
		zap.Int64("member_id", memberID),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	return nil
}

// validateMove resolves the member and checks the destination. proceed is
// false for the benign not-found cases.
func (e *Engine) validateMove(region model.Region, memberID int64, from, to model.Container) (model.Member, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.snapshots[region]

	member, ok := snap.Find(memberID, from)
	if !ok {
		e.logger.Debug("move source vanished", zap.Int64("member_id", memberID), zap.Stringer("from", from))
		return model.Member{}, false, nil
	}
	if to.IsRoster() {
		return member, true, nil
	}

	dest, ok := snap.Team(to.TeamID)
	if !ok {
		e.logger.Debug("move destination vanished", zap.Int64("team_id", to.TeamID))
		return model.Member{}, false, nil
	}
	if from.IsTeam() {
		if src, ok := snap.Team(from.TeamID); ok && src.Day != dest.Day {
			return model.Member{}, false, ErrCrossDayMove
		}
	}
	if !member.AvailableOn(dest.Day) {
		return model.Member{}, false, ErrDayIneligible
	}
	var exclude int64
	if from.IsTeam() {
		exclude = from.TeamID
	}
	if _, seated := snap.SeatOn(memberID, dest.Day, exclude); seated {
		return model.Member{}, false, ErrAlreadySeated
	}
	return member, true, nil
}

// AddTeam creates a team for the region's current event. An empty name
// becomes "Team N" and an empty day becomes Saturday.
func (e *Engine) AddTeam(ctx context.Context, region model.Region, name string, day model.Day, description string) (*model.Team, error) {
	if !region.IsValid() {
		return nil, model.ErrUnknownRegion
	}
	if day == "" {
		day = model.Saturday
	}
	if !day.IsValid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTeam, model.ErrUnknownDay)
	}

	release, err := e.begin("add-team:" + string(region))
	if err != nil {
		return nil, err
	}
	defer release()

	e.mu.Lock()
	snap := e.snapshots[region]
	if !snap.HasEvent {
		e.mu.Unlock()
		return nil, ErrEventNotLoaded
	}
	eventID := snap.EventID
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Team %d", len(snap.Teams)+1)
	}
	e.mu.Unlock()

	req := remote.CreateTeamRequest{EventID: eventID, Name: name, Day: string(day)}
	if description != "" {
		req.Description = &description
	}
	created, err := e.remote.CreateTeam(ctx, req)
	if err != nil {
		return nil, e.fail(region, "create team", err)
	}

	var team model.Team
	e.commit(region, func(snap *model.Snapshot) {
		team, err = projectTeam(*created, snap.Members, region)
		if err != nil {
			// The server echoed a day we could not read; keep the one we asked for.
			team = model.Team{ID: created.ID, Name: created.Name, Day: day, Description: description}
			err = nil
		}
		if existing, ok := snap.Team(team.ID); ok {
			*existing = team
		} else {
			snap.Teams = append(snap.Teams, team)
		}
		team.Members = slices.Clone(team.Members)
	})
	e.logger.Info("team created",
		zap.String("region", string(region)),
		zap.Int64("team_id", team.ID),
		zap.String("day", string(team.Day)),
	)
	return &team, nil
}

// RenameTeam changes a team's display name. A team that is no longer there
// is ignored.
func (e *Engine) RenameTeam(ctx context.Context, region model.Region, teamID int64, name string) error {
	if !region.IsValid() {
		return model.ErrUnknownRegion
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTeam)
	}

	release, err := e.begin(fmt.Sprintf("team:%s:%d", region, teamID))
	if err != nil {
		return err
	}
	defer release()

	if !e.hasTeam(region, teamID) {
		return nil
	}
	if _, err := e.remote.UpdateTeam(ctx, teamID, remote.UpdateTeamRequest{Name: &name}); err != nil {
		return e.fail(region, "rename team", err)
	}
	e.commit(region, func(snap *model.Snapshot) {
		if t, ok := snap.Team(teamID); ok {
			t.Name = name
		}
	})
	return nil
}

// DeleteTeam removes a team. Its members stay in the roster.
func (e *Engine) DeleteTeam(ctx context.Context, region model.Region, teamID int64) error {
	if !region.IsValid() {
		return model.ErrUnknownRegion
	}
	release, err := e.begin(fmt.Sprintf("team:%s:%d", region, teamID))
	if err != nil {
		return err
	}
	defer release()

	if !e.hasTeam(region, teamID) {
		return nil
	}
	if err := e.remote.DeleteTeam(ctx, teamID); err != nil {
		return e.fail(region, "delete team", err)
	}
	e.commit(region, func(snap *model.Snapshot) {
		snap.Teams = slices.DeleteFunc(snap.Teams, func(t model.Team) bool { return t.ID == teamID })
	})
	e.logger.Info("team deleted", zap.String("region", string(region)), zap.Int64("team_id", teamID))
	return nil
}

// DeleteUser removes a member who sits in no team at all. Seated members
// are rejected with ErrMemberAssigned before any remote call.
func (e *Engine) DeleteUser(ctx context.Context, region model.Region, userID int64) error {
	if !region.IsValid() {
		return model.ErrUnknownRegion
	}
	release, err := e.begin(fmt.Sprintf("user:%s:%d", region, userID))
	if err != nil {
		return err
	}
	defer release()

	e.mu.Lock()
	snap := e.snapshots[region]
	_, found := snap.Member(userID)
	seated := snap.IsSeated(userID)
	e.mu.Unlock()
	if seated {
		return ErrMemberAssigned
	}
	if !found {
		return nil
	}

	if err := e.remote.DeleteUser(ctx, userID); err != nil {
		return e.fail(region, "delete user", err)
	}
	e.commit(region, func(snap *model.Snapshot) {
		snap.Members = slices.DeleteFunc(snap.Members, func(m model.Member) bool { return m.ID == userID })
	})
	e.logger.Info("member deleted", zap.String("region", string(region)), zap.Int64("member_id", userID))
	return nil
}

// CreateEvent asks the remote service to open this week's events and
// reloads the region.
func (e *Engine) CreateEvent(ctx context.Context, region model.Region) error {
	if !region.IsValid() {
		return model.ErrUnknownRegion
	}
	release, err := e.begin("create-event")
	if err != nil {
		return err
	}
	defer release()

	if _, err := e.remote.CreateWeeklyEvent(ctx); err != nil {
		return e.fail(region, "create weekly event", err)
	}
	e.Invalidate(region)
	return e.FetchEvent(ctx, region, true)
}

func (e *Engine) hasTeam(region model.Region, teamID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.snapshots[region].Team(teamID)
	return ok
}
