package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Gopher0727/GuildWar/internal/remote"
)

// fakeService is an in-memory roster service. It keeps one event per region
// and applies mutations to it so that re-fetches observe them.
type fakeService struct {
	mu         sync.Mutex
	events     map[string]*remote.Event
	calls      []string
	errs       map[string]error
	nextTeamID int64
	nextUserID int64

	// gate, when set, holds GetCurrentEvent until it is closed.
	gate    chan struct{}
	started chan struct{}
	// readEarly makes a gated GetCurrentEvent answer with the state from
	// before the gate, like a response already on the wire.
	readEarly bool
}

func newFakeService() *fakeService {
	return &fakeService{
		events:     make(map[string]*remote.Event),
		errs:       make(map[string]error),
		nextTeamID: 100,
		nextUserID: 1000,
	}
}

func (f *fakeService) record(op string, args ...any) error {
	parts := []string{op}
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	f.calls = append(f.calls, strings.Join(parts, " "))
	return f.errs[op]
}

func (f *fakeService) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeService) count(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == op || strings.HasPrefix(c, op+" ") {
			n++
		}
	}
	return n
}

func (f *fakeService) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeService) GetCurrentEvent(ctx context.Context, region string) (*remote.Event, error) {
	f.mu.Lock()
	err := f.record("get", region)
	gate, started := f.gate, f.started
	var early *remote.Event
	if ev, ok := f.events[region]; ok && f.readEarly {
		early = cloneEvent(ev)
	}
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if early != nil {
		return early, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[region]
	if !ok {
		return nil, &remote.APIError{Status: 404, Message: "No event found for this week"}
	}
	return cloneEvent(ev), nil
}

func (f *fakeService) CreateWeeklyEvent(context.Context) (*remote.CreateEventResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create-weekly"); err != nil {
		return nil, err
	}
	for i, region := range []string{"vn", "na"} {
		if _, ok := f.events[region]; !ok {
			f.events[region] = &remote.Event{ID: int64(500 + i), Region: region, WeekStartDate: "2026-10-12"}
		}
	}
	return &remote.CreateEventResponse{Message: "created", Event: *f.events["vn"]}, nil
}

func (f *fakeService) CreateTeam(_ context.Context, req remote.CreateTeamRequest) (*remote.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create-team", req.Name, req.Day); err != nil {
		return nil, err
	}
	f.nextTeamID++
	team := remote.Team{ID: f.nextTeamID, EventID: req.EventID, Name: req.Name, Day: req.Day, Description: req.Description}
	for _, ev := range f.events {
		if ev.ID == req.EventID {
			ev.Teams = append(ev.Teams, team)
		}
	}
	return &team, nil
}

func (f *fakeService) UpdateTeam(_ context.Context, teamID int64, req remote.UpdateTeamRequest) (*remote.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update-team", teamID); err != nil {
		return nil, err
	}
	t := f.team(teamID)
	if t == nil {
		return nil, &remote.APIError{Status: 404, Message: "Team not found"}
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	out := *t
	return &out, nil
}

func (f *fakeService) DeleteTeam(_ context.Context, teamID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete-team", teamID); err != nil {
		return err
	}
	for _, ev := range f.events {
		ev.Teams = slices.DeleteFunc(ev.Teams, func(t remote.Team) bool { return t.ID == teamID })
	}
	return nil
}

func (f *fakeService) AssignUserToTeam(_ context.Context, teamID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("assign", teamID, userID); err != nil {
		return err
	}
	t := f.team(teamID)
	if t == nil {
		return &remote.APIError{Status: 404, Message: "Team not found"}
	}
	user := f.user(userID)
	t.Members = append(t.Members, remote.TeamMember{TeamID: teamID, UserID: userID, User: user})
	return nil
}

func (f *fakeService) RemoveUserFromTeam(_ context.Context, teamID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("remove", teamID, userID); err != nil {
		return err
	}
	if t := f.team(teamID); t != nil {
		t.Members = slices.DeleteFunc(t.Members, func(m remote.TeamMember) bool { return m.UserID == userID })
	}
	return nil
}

func (f *fakeService) DeleteUser(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete-user", userID); err != nil {
		return err
	}
	for _, ev := range f.events {
		ev.Signups = slices.DeleteFunc(ev.Signups, func(s remote.Signup) bool { return s.UserID == userID })
	}
	return nil
}

func (f *fakeService) Signup(_ context.Context, req remote.SignupRequest) (*remote.SignupResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("signup", req.Username); err != nil {
		return nil, err
	}
	ev, ok := f.events[req.Region]
	if !ok {
		return nil, &remote.APIError{Status: 404, Message: "No event found for this week"}
	}
	f.nextUserID++
	role := req.PrimaryRole
	user := remote.User{ID: f.nextUserID, Username: req.Username, Region: req.Region, PrimaryClass: req.PrimaryClass, PrimaryRole: &role}
	ev.Signups = append(ev.Signups, remote.Signup{EventID: ev.ID, UserID: user.ID, TimeSlots: req.TimeSlots, User: user})

	resp := &remote.SignupResponse{Message: "Signed up", User: user}
	resp.Event.ID = ev.ID
	return resp, nil
}

func (f *fakeService) team(id int64) *remote.Team {
	for _, ev := range f.events {
		for i := range ev.Teams {
			if ev.Teams[i].ID == id {
				return &ev.Teams[i]
			}
		}
	}
	return nil
}

func (f *fakeService) user(id int64) remote.User {
	for _, ev := range f.events {
		for _, s := range ev.Signups {
			if s.UserID == id {
				return s.User
			}
		}
	}
	return remote.User{ID: id}
}

func cloneEvent(ev *remote.Event) *remote.Event {
	raw, err := json.Marshal(ev)
	if err != nil {
		panic(err)
	}
	var out remote.Event
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

// signup builds a signed-up user for fixtures.
func signup(id int64, name, role string, slots ...string) remote.Signup {
	r := role
	return remote.Signup{
		EventID:   42,
		UserID:    id,
		TimeSlots: slots,
		User: remote.User{
			ID:           id,
			Username:     name,
			Region:       "vn",
			PrimaryClass: []string{"strategicSword", "heavenquakerSpear"},
			PrimaryRole:  &r,
		},
	}
}

func team(id int64, name, day string, members ...remote.Signup) remote.Team {
	t := remote.Team{ID: id, EventID: 42, Name: name, Day: day, Members: []remote.TeamMember{}}
	for _, s := range members {
		t.Members = append(t.Members, remote.TeamMember{TeamID: id, UserID: s.UserID, User: s.User})
	}
	return t
}

var (
	alice = signup(1, "Alice", "tank", "sat_19:30-20:00", "sat_20:00-20:30")
	bob   = signup(2, "Bob", "healer", "sat_21:00-21:30", "sun_19:30-20:00")
	carol = signup(3, "Carol", "dps", "sun_20:00-20:30")
	dan   = signup(4, "Dan", "", "sat_22:00-22:30")
)

// vnEvent is the reference event: Alice sits in Team A, nobody else is seated.
func vnEvent() *remote.Event {
	return &remote.Event{
		ID:            42,
		Region:        "vn",
		WeekStartDate: "2026-10-12",
		Signups:       []remote.Signup{alice, bob, carol, dan},
		Teams: []remote.Team{
			team(10, "Team A", "saturday", alice),
			team(11, "Team B", "saturday"),
			team(12, "Team C", "saturday"),
			team(20, "Sunday Squad", "sunday"),
		},
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 17, 19, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
