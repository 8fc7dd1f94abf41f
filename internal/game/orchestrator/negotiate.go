package orchestrator

import (
	"github.com/cory-johannsen/npcbrain/internal/game/combat"
	"github.com/cory-johannsen/npcbrain/internal/game/threat"
)

// Strategy is the approach an NPC takes when negotiating mid-combat.
type Strategy int

const (
	StrategyBasic Strategy = iota
	StrategyDiplomatic
	StrategyBribery
	StrategyIntimidation
	StrategyAuthority
)

// String returns the upper-case strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyDiplomatic:
		return "DIPLOMATIC"
	case StrategyBribery:
		return "BRIBERY"
	case StrategyIntimidation:
		return "INTIMIDATION"
	case StrategyAuthority:
		return "AUTHORITY"
	default:
		return "BASIC"
	}
}

// Bonus is added to the success chance when the strategy is applied.
func (s Strategy) Bonus() float64 {
	switch s {
	case StrategyDiplomatic:
		return 0.2
	case StrategyBribery:
		return 0.3
	case StrategyIntimidation:
		return 0.15
	case StrategyAuthority:
		return 0.25
	default:
		return 0
	}
}

const (
	baseNegotiationChance = 0.3
	highReputationBonus   = 0.2
	defaultSocialBonus    = 0.1
	defensiveBonus        = 0.15
	crowdPenalty          = 0.25
	// desperateChance is the success chance above which a diplomatic NPC
	// can talk its way out even when the basic attempt fails.
	desperateChance = 0.8
)

// NegotiationChance returns the probability in [0, 1] that talking works.
// highReputation is true when the negotiator is known to be well regarded.
func NegotiationChance(s combat.Situation, highReputation bool) float64 {
	c := baseNegotiationChance
	switch s.Overall {
	case threat.None:
		c += 0.5
	case threat.Low:
		c += 0.4
	case threat.Moderate:
		c += 0.2
	case threat.High:
		c -= 0.1
	case threat.Extreme:
		c -= 0.3
	}
	if highReputation {
		c += highReputationBonus
	} else {
		c += defaultSocialBonus
	}
	if s.Defensive {
		c += defensiveBonus
	}
	if len(s.Opponents) > 3 {
		c -= crowdPenalty
	}
	return min(1, max(0, c))
}

// ChooseStrategy picks a negotiation approach for the situation.
func ChooseStrategy(s combat.Situation) Strategy {
	opponents, allies := len(s.Opponents), len(s.Allies)
	switch {
	case s.Overall <= threat.Low:
		return StrategyDiplomatic
	case opponents > allies+1:
		return StrategyBribery
	case allies > opponents:
		return StrategyIntimidation
	case s.Defensive:
		return StrategyAuthority
	default:
		return StrategyBasic
	}
}

// negotiate resolves a NEGOTIATE decision. draw yields uniform values in [0, 1).
func negotiate(c Combatant, s combat.Situation, draw func() float64) bool {
	high := false
	if r, ok := c.(Reputable); ok {
		high = r.HasHighReputation()
	}
	chance := NegotiationChance(s, high)
	strategy := ChooseStrategy(s)
	if c.AttemptNegotiation() {
		return draw() < chance+strategy.Bonus()
	}
	return chance > desperateChance && strategy == StrategyDiplomatic
}
