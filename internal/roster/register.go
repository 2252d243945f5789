package roster

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Gopher0727/GuildWar/internal/model"
	"github.com/Gopher0727/GuildWar/internal/remote"
)

// Registration is a member's signup for the current event of a region.
type Registration struct {
	Username       string       `json:"username"`
	Region         model.Region `json:"region"`
	PrimaryClass   []string     `json:"primaryClass"`
	SecondaryClass []string     `json:"secondaryClass,omitempty"`
	PrimaryRole    model.Role   `json:"primaryRole"`
	SecondaryRole  model.Role   `json:"secondaryRole,omitempty"`
	TimeSlots      []string     `json:"timeSlots"`
	Notes          string       `json:"notes,omitempty"`
}

// Validate checks the registration locally. A secondary class is either
// two known builds or absent.
func (r *Registration) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidSignup, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(r.Username) == "" {
		return invalid("username is required")
	}
	if !r.Region.IsValid() {
		return invalid("unknown region %q", r.Region)
	}

	primary, ok := model.NewClassPair(r.PrimaryClass)
	if !ok {
		return invalid("primary class needs two builds")
	}
	if err := primary.Validate(); err != nil {
		return invalid("primary class: %v", err)
	}
	if len(r.SecondaryClass) > 0 {
		secondary, ok := model.NewClassPair(r.SecondaryClass)
		if !ok {
			return invalid("secondary class needs two builds or none")
		}
		if err := secondary.Validate(); err != nil {
			return invalid("secondary class: %v", err)
		}
	}

	if !r.PrimaryRole.IsValid() {
		return invalid("primary role is required")
	}
	if r.SecondaryRole != model.RoleNone && !r.SecondaryRole.IsValid() {
		return invalid("unknown secondary role %q", r.SecondaryRole)
	}

	if len(r.TimeSlots) == 0 {
		return invalid("at least one time slot is required")
	}
	if _, rejected := model.NewSlotSet(r.TimeSlots...); len(rejected) > 0 {
		return invalid("unknown time slots %v", rejected)
	}
	return nil
}

func (r *Registration) request() remote.SignupRequest {
	req := remote.SignupRequest{
		Username:     strings.TrimSpace(r.Username),
		Region:       r.Region.APIName(),
		PrimaryClass: r.PrimaryClass,
		PrimaryRole:  r.PrimaryRole.APIName(),
		TimeSlots:    lo.Uniq(r.TimeSlots),
		Notes:        strings.TrimSpace(r.Notes),
	}
	if len(r.SecondaryClass) > 0 {
		req.SecondaryClass = r.SecondaryClass
	}
	if r.SecondaryRole.IsValid() {
		req.SecondaryRole = r.SecondaryRole.APIName()
	}
	return req
}

// RegisterUser signs a member up and reloads the region so the new member
// shows on the board.
func (e *Engine) RegisterUser(ctx context.Context, reg Registration) (*remote.User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("signup:%s:%s", reg.Region, strings.ToLower(strings.TrimSpace(reg.Username)))
	release, err := e.begin(key)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := e.remote.Signup(ctx, reg.request())
	if err != nil {
		return nil, e.fail(reg.Region, "signup", err)
	}
	e.logger.Info("member signed up",
		zap.String("region", string(reg.Region)),
		zap.Int64("member_id", resp.User.ID),
	)

	e.Invalidate(reg.Region)
	if err := e.FetchEvent(ctx, reg.Region, true); err != nil {
		return &resp.User, err
	}
	return &resp.User, nil
}
