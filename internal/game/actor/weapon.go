package actor

import (
	"fmt"
	"strings"
)

// WeaponKind categorizes weapons for personality-based preference scoring.
type WeaponKind int

const (
	WeaponOther WeaponKind = iota
	WeaponSword
	WeaponBow
	WeaponAxe
)

// String returns the lowercase weapon kind name.
func (k WeaponKind) String() string {
	switch k {
	case WeaponSword:
		return "sword"
	case WeaponBow:
		return "bow"
	case WeaponAxe:
		return "axe"
	default:
		return "other"
	}
}

// ParseWeaponKind maps a case-insensitive weapon name to its kind.
//
// Postcondition: Returns (kind, true) for sword, bow, or axe; (WeaponOther, false) otherwise.
func ParseWeaponKind(s string) (WeaponKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sword":
		return WeaponSword, true
	case "bow":
		return WeaponBow, true
	case "axe":
		return WeaponAxe, true
	default:
		return WeaponOther, false
	}
}

// standardDamage is the damage assigned to weapons named by the text model.
var standardDamage = map[WeaponKind]float64{
	WeaponSword: 6,
	WeaponBow:   4,
	WeaponAxe:   7,
	WeaponOther: 5,
}

// Weapon is an equippable item with a damage value.
type Weapon struct {
	Kind   WeaponKind
	Damage float64
}

// StandardWeapon returns a weapon of kind with the standard damage value.
//
// Postcondition: Damage is 6 for swords, 4 for bows, 7 for axes, 5 otherwise.
func StandardWeapon(kind WeaponKind) Weapon {
	return Weapon{Kind: kind, Damage: standardDamage[kind]}
}

// String returns a short description such as "axe(7.0)".
func (w Weapon) String() string {
	return fmt.Sprintf("%s(%.1f)", w.Kind, w.Damage)
}
