package game

// EncounterKind identifies which combat mode an encounter belongs to.
type EncounterKind int

const (
	KindHunt EncounterKind = iota
	KindDuel
	KindBoss
)

func (k EncounterKind) String() string {
	switch k {
	case KindHunt:
		return "hunt"
	case KindDuel:
		return "duel"
	case KindBoss:
		return "boss"
	}
	return "unknown"
}

// Action is a typed combat command. Engines dispatch on (kind, action)
// explicitly instead of routing on callback strings.
type Action int

const (
	ActionAttack Action = iota
	ActionMagic
	ActionDefend
	ActionFlee
)

func (a Action) String() string {
	switch a {
	case ActionAttack:
		return "attack"
	case ActionMagic:
		return "magic"
	case ActionDefend:
		return "defend"
	case ActionFlee:
		return "flee"
	}
	return "unknown"
}

// State is the encounter lifecycle. Every accepted action keeps an
// Engaged encounter Engaged unless it hits a terminal condition; terminal
// states release the encounter's mutable resources immediately.
type State int

const (
	StateIdle State = iota
	StateEngaged
	StateVictory
	StateDefeat
	StateFled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEngaged:
		return "engaged"
	case StateVictory:
		return "victory"
	case StateDefeat:
		return "defeat"
	case StateFled:
		return "fled"
	}
	return "unknown"
}

// Terminal reports whether the state ends the encounter.
func (s State) Terminal() bool {
	return s == StateVictory || s == StateDefeat || s == StateFled
}
