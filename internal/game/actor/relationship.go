package actor

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// RelationshipLevel is the bond an NPC holds toward another entity.
type RelationshipLevel int

const (
	Stranger RelationshipLevel = iota
	Enemy
	Acquaintance
	Friend
	CloseFriend
	Family
)

// String returns the upper-case level name.
func (l RelationshipLevel) String() string {
	switch l {
	case Enemy:
		return "ENEMY"
	case Acquaintance:
		return "ACQUAINTANCE"
	case Friend:
		return "FRIEND"
	case CloseFriend:
		return "CLOSE_FRIEND"
	case Family:
		return "FAMILY"
	default:
		return "STRANGER"
	}
}

// ParseRelationshipLevel maps a case-insensitive level name such as
// "close_friend" or "Close Friend" to its level.
//
// Postcondition: Returns (level, true) for a known name; (Stranger, false) otherwise.
func ParseRelationshipLevel(s string) (RelationshipLevel, bool) {
	name := strings.ToUpper(strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), "_"))
	for l := Stranger; l <= Family; l++ {
		if l.String() == name {
			return l, true
		}
	}
	return Stranger, false
}

// IsFriendly reports whether l counts as a friend for targeting purposes.
func (l RelationshipLevel) IsFriendly() bool {
	return l == Friend || l == CloseFriend || l == Family
}

// Relationship carries an NPC's rapport (trust and friendship) and its
// per-entity bond levels. All methods are safe for concurrent use.
//
// Invariant: Trust() and Friendship() are always in [-1, 1].
type Relationship struct {
	mu           sync.RWMutex
	trust        float64
	friendship   float64
	interactions int
	levels       map[uuid.UUID]RelationshipLevel
}

// NewRelationship returns a neutral relationship record.
//
// Postcondition: Trust() == Friendship() == 0; every entity is a Stranger.
func NewRelationship() *Relationship {
	return &Relationship{levels: make(map[uuid.UUID]RelationshipLevel)}
}

// Trust returns the trust component.
func (r *Relationship) Trust() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trust
}

// Friendship returns the friendship component.
func (r *Relationship) Friendship() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.friendship
}

// Interactions returns how many rapport adjustments have been applied.
func (r *Relationship) Interactions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.interactions
}

// SetTrust sets trust, clamped to [-1, 1].
func (r *Relationship) SetTrust(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trust = clampUnit(v)
}

// SetFriendship sets friendship, clamped to [-1, 1].
func (r *Relationship) SetFriendship(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.friendship = clampUnit(v)
}

// AdjustRapport adds the given deltas to trust and friendship, clamps both,
// and counts one interaction.
//
// Postcondition: Interactions() is incremented by one.
func (r *Relationship) AdjustRapport(trustDelta, friendshipDelta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trust = clampUnit(r.trust + trustDelta)
	r.friendship = clampUnit(r.friendship + friendshipDelta)
	r.interactions++
}

// Level returns the bond toward id; unknown entities are Strangers.
func (r *Relationship) Level(id uuid.UUID) RelationshipLevel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.levels[id]
}

// SetLevel records the bond toward id.
func (r *Relationship) SetLevel(id uuid.UUID, l RelationshipLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.levels == nil {
		r.levels = make(map[uuid.UUID]RelationshipLevel)
	}
	r.levels[id] = l
}

// IsFriend reports whether id is a Friend, CloseFriend, or Family member.
// A nil Relationship has no friends.
func (r *Relationship) IsFriend(id uuid.UUID) bool {
	if r == nil {
		return false
	}
	return r.Level(id).IsFriendly()
}

// RelationshipLevel returns the bond toward id, or Stranger for a nil receiver.
func (r *Relationship) RelationshipLevel(id uuid.UUID) RelationshipLevel {
	if r == nil {
		return Stranger
	}
	return r.Level(id)
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
