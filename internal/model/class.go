package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownClass = errors.New("unknown class")

// ClassType identifies one weapon build of the game.
type ClassType string

const (
	StrategicSword     ClassType = "strategicSword"
	HeavenquakerSpear  ClassType = "heavenquakerSpear"
	NamelessSword      ClassType = "namelessSword"
	NamelessSpear      ClassType = "namelessSpear"
	VernalUmbrella     ClassType = "vernalUmbrella"
	InkwellFan         ClassType = "inkwellFan"
	SoulshadeUmbrella  ClassType = "soulshadeUmbrella"
	PanaceaFan         ClassType = "panaceaFan"
	ThundercryBlade    ClassType = "thundercryBlade"
	StormreakerSpear   ClassType = "stormreakerSpear"
	InfernalTwinblades ClassType = "infernalTwinblades"
	MortalRopeDart     ClassType = "mortalRopeDart"
)

var classDisplayNames = map[ClassType]string{
	StrategicSword:     "Cửu kiếm",
	HeavenquakerSpear:  "Cửu thương",
	NamelessSword:      "Vô Danh Kiếm",
	NamelessSpear:      "Vô Danh Thương",
	VernalUmbrella:     "Dù DPS",
	InkwellFan:         "Quạt DPS",
	SoulshadeUmbrella:  "Dù Heal",
	PanaceaFan:         "Quạt Heal",
	ThundercryBlade:    "Đại đao",
	StormreakerSpear:   "Thương Tank",
	InfernalTwinblades: "Song Đao",
	MortalRopeDart:     "Roi",
}

func (c ClassType) IsValid() bool {
	_, ok := classDisplayNames[c]
	return ok
}

// DisplayName returns the in-game name, or the raw identifier if unknown.
func (c ClassType) DisplayName() string {
	if name, ok := classDisplayNames[c]; ok {
		return name
	}
	return string(c)
}

// ClassPair is the two weapons of one build.
type ClassPair [2]ClassType

// NewClassPair builds a pair from wire values. ok is false unless both
// halves are present.
func NewClassPair(halves []string) (pair ClassPair, ok bool) {
	if len(halves) != 2 || halves[0] == "" || halves[1] == "" {
		return ClassPair{}, false
	}
	return ClassPair{ClassType(halves[0]), ClassType(halves[1])}, true
}

// Validate checks both halves against the known builds.
func (p ClassPair) Validate() error {
	for _, c := range p {
		if !c.IsValid() {
			return fmt.Errorf("%w: %q", ErrUnknownClass, string(c))
		}
	}
	return nil
}

func (p ClassPair) IsZero() bool {
	return p[0] == "" && p[1] == ""
}

func (p ClassPair) Strings() []string {
	return []string{string(p[0]), string(p[1])}
}

// String formats the pair for display, e.g. "Cửu kiếm / Cửu thương".
func (p ClassPair) String() string {
	return strings.Join([]string{p[0].DisplayName(), p[1].DisplayName()}, " / ")
}
