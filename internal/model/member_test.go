package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleDPS, ParseRole("dps"))
	assert.Equal(t, RoleHealer, ParseRole("HEALER"))
	assert.Equal(t, RoleTank, ParseRole(" Tank "))
	assert.Equal(t, RoleNone, ParseRole(""))
	assert.Equal(t, RoleNone, ParseRole("support"))
	assert.Less(t, RoleTank.Rank(), RoleHealer.Rank())
	assert.Less(t, RoleHealer.Rank(), RoleDPS.Rank())
	assert.Less(t, RoleDPS.Rank(), RoleNone.Rank())
}

func TestParseRegionAndDay(t *testing.T) {
	r, err := ParseRegion("vn")
	require.NoError(t, err)
	assert.Equal(t, RegionVN, r)
	assert.Equal(t, "vn", r.APIName())
	assert.Equal(t, "America/New_York", RegionNA.TimeZone())

	_, err = ParseRegion("eu")
	assert.ErrorIs(t, err, ErrUnknownRegion)

	d, err := ParseDay("sun")
	require.NoError(t, err)
	assert.Equal(t, Sunday, d)
	_, err = ParseDay("monday")
	assert.ErrorIs(t, err, ErrUnknownDay)
}

func TestClassPair(t *testing.T) {
	pair, ok := NewClassPair([]string{"strategicSword", "heavenquakerSpear"})
	require.True(t, ok)
	assert.NoError(t, pair.Validate())
	assert.Equal(t, "Cửu kiếm / Cửu thương", pair.String())

	_, ok = NewClassPair([]string{"strategicSword", ""})
	assert.False(t, ok)
	_, ok = NewClassPair(nil)
	assert.False(t, ok)

	assert.ErrorIs(t, ClassPair{"strategicSword", "laserGun"}.Validate(), ErrUnknownClass)
}

func TestContainer(t *testing.T) {
	t.Run("json round trip of the tagged union", func(t *testing.T) {
		var c Container
		require.NoError(t, json.Unmarshal([]byte(`{"kind":"team","teamId":7}`), &c))
		assert.Equal(t, InTeam(7), c)

		require.NoError(t, json.Unmarshal([]byte(`{"kind":"roster"}`), &c))
		assert.Equal(t, Roster(), c)
	})

	t.Run("rejects inconsistent containers", func(t *testing.T) {
		var c Container
		assert.Error(t, json.Unmarshal([]byte(`{"kind":"team"}`), &c))
		assert.Error(t, json.Unmarshal([]byte(`{"kind":"roster","teamId":3}`), &c))
		assert.Error(t, json.Unmarshal([]byte(`{"kind":"bench"}`), &c))
	})
}

func TestSnapshot(t *testing.T) {
	alice := Member{ID: 1, Name: "Alice", Slots: MustSlotSet("sat_19:30-20:00")}
	bob := Member{ID: 2, Name: "Bob", Slots: MustSlotSet("sun_19:30-20:00")}

	snap := NewSnapshot(RegionVN)
	snap.Members = []Member{alice, bob}
	snap.Teams = []Team{
		{ID: 10, Name: "A", Day: Saturday, Members: []Member{alice}},
		{ID: 11, Name: "B", Day: Saturday},
		{ID: 12, Name: "C", Day: Sunday, Members: []Member{bob}},
	}

	t.Run("find in containers", func(t *testing.T) {
		m, ok := snap.Find(1, Roster())
		require.True(t, ok)
		assert.Equal(t, "Alice", m.Name)

		_, ok = snap.Find(1, InTeam(11))
		assert.False(t, ok)
		_, ok = snap.Find(1, InTeam(99))
		assert.False(t, ok)
		_, ok = snap.Find(1, InTeam(10))
		assert.True(t, ok)
	})

	t.Run("seat lookup honours day and exclusion", func(t *testing.T) {
		team, ok := snap.SeatOn(1, Saturday, 0)
		require.True(t, ok)
		assert.Equal(t, int64(10), team.ID)

		_, ok = snap.SeatOn(1, Saturday, 10)
		assert.False(t, ok)
		_, ok = snap.SeatOn(1, Sunday, 0)
		assert.False(t, ok)

		assert.True(t, snap.IsSeated(2))
	})

	t.Run("clone is independent", func(t *testing.T) {
		clone := snap.Clone()
		clone.AppendToTeam(11, alice)
		clone.RemoveFromTeam(10, 1)
		clone.Members[0].Name = "changed"

		assert.Len(t, snap.Teams[0].Members, 1)
		assert.Empty(t, snap.Teams[1].Members)
		assert.Equal(t, "Alice", snap.Members[0].Name)
		assert.Len(t, clone.Teams[1].Members, 1)
	})
}

func TestTextUnmarshalers(t *testing.T) {
	var body struct {
		Region Region `json:"region"`
		Day    Day    `json:"day"`
		Role   Role   `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"region":"na","day":"sun","role":"HEALER"}`), &body))
	assert.Equal(t, RegionNA, body.Region)
	assert.Equal(t, Sunday, body.Day)
	assert.Equal(t, RoleHealer, body.Role)

	body.Day = Saturday
	require.NoError(t, json.Unmarshal([]byte(`{"region":"VN","day":"","role":"bard"}`), &body))
	assert.Equal(t, Day(""), body.Day, "an empty day stays unset")
	assert.Equal(t, RoleNone, body.Role)

	assert.ErrorIs(t, json.Unmarshal([]byte(`{"region":"eu"}`), &body), ErrUnknownRegion)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"day":"monday"}`), &body), ErrUnknownDay)
}
