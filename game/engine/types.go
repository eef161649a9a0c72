package engine

import (
	"fmt"
	"strings"
)

// CellKind classifies a single grid cell
type CellKind uint8

const (
	Empty CellKind = iota
	Entity
	Solid
	Hazard
	Checkpoint
	Goal
)

var cellKindNames = [...]string{
	Empty:      "empty",
	Entity:     "entity",
	Solid:      "solid",
	Hazard:     "hazard",
	Checkpoint: "checkpoint",
	Goal:       "goal",
}

// String returns the lowercase name of the cell kind
func (k CellKind) String() string {
	if int(k) < len(cellKindNames) {
		return cellKindNames[k]
	}
	return fmt.Sprintf("cellkind(%d)", k)
}

// MarshalText encodes the kind by name
func (k CellKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name
func (k *CellKind) UnmarshalText(text []byte) error {
	kind, err := ParseCellKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseCellKind maps a name to its CellKind. "spawn" and "player" are
// accepted as aliases for Entity.
func ParseCellKind(name string) (CellKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "empty", "":
		return Empty, nil
	case "entity", "spawn", "player":
		return Entity, nil
	case "solid", "wall":
		return Solid, nil
	case "hazard", "damage":
		return Hazard, nil
	case "checkpoint":
		return Checkpoint, nil
	case "goal", "finish":
		return Goal, nil
	}
	return Empty, fmt.Errorf("unknown cell kind %q", name)
}

// Position is a (column, row) coordinate on the grid
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p translated by d
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Direction is one of the four movement directions
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists every direction in a stable order
var Directions = [...]Direction{Up, Down, Left, Right}

var directionNames = [...]string{Up: "up", Down: "down", Left: "left", Right: "right"}

var directionDeltas = [...]Position{
	Up:    {X: 0, Y: -1},
	Down:  {X: 0, Y: 1},
	Left:  {X: -1, Y: 0},
	Right: {X: 1, Y: 0},
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", d)
}

// MarshalText encodes the direction by name
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name
func (d *Direction) UnmarshalText(text []byte) error {
	dir, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = dir
	return nil
}

// Delta returns the unit vector for the direction
func (d Direction) Delta() Position {
	return directionDeltas[d]
}

// ParseDirection maps "up", "down", "left" or "right" to a Direction
func ParseDirection(name string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return Up, fmt.Errorf("invalid direction %q", name)
}

// Orientation is the facing of the controlled entity. Values line up with
// Direction: a move in direction d always leaves the entity facing d.
type Orientation uint8

func orientationFor(d Direction) Orientation {
	return Orientation(d)
}

// Direction returns the direction the entity is facing
func (o Orientation) Direction() Direction {
	return Direction(o)
}

func (o Orientation) String() string {
	return Direction(o).String()
}

// MarshalText encodes the orientation by name
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an orientation name
func (o *Orientation) UnmarshalText(text []byte) error {
	dir, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*o = orientationFor(dir)
	return nil
}

// GameState is the top-level mode of a game
type GameState uint8

const (
	MainMenu GameState = iota
	Playing
	Win
	Lose
)

// GameStates lists every state; tables keyed by GameState are checked against it
var GameStates = [...]GameState{MainMenu, Playing, Win, Lose}

var gameStateNames = [...]string{
	MainMenu: "main_menu",
	Playing:  "playing",
	Win:      "win",
	Lose:     "lose",
}

func (s GameState) String() string {
	if int(s) < len(gameStateNames) {
		return gameStateNames[s]
	}
	return fmt.Sprintf("gamestate(%d)", s)
}

// MarshalText encodes the state by name
func (s GameState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name
func (s *GameState) UnmarshalText(text []byte) error {
	for i, name := range gameStateNames {
		if name == string(text) {
			*s = GameState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown game state %q", text)
}

// Action is a discrete, non-movement player request
type Action uint8

const (
	ActionPlay Action = iota
	ActionRestart
	ActionMenu
	ActionReload
)

var actionNames = [...]string{
	ActionPlay:    "play",
	ActionRestart: "restart",
	ActionMenu:    "menu",
	ActionReload:  "reload",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", a)
}

// ParseAction maps an action name to an Action
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range actionNames {
		if n == name {
			return Action(i), nil
		}
	}
	return ActionPlay, fmt.Errorf("invalid action %q", name)
}

// IntentKind tells a movement intent from an action intent
type IntentKind uint8

const (
	IntentMove IntentKind = iota
	IntentAction
)

// Intent is one sampled input: either a direction or an action
type Intent struct {
	Kind      IntentKind
	Direction Direction
	Action    Action
}

// MoveIntent builds a movement intent
func MoveIntent(d Direction) Intent {
	return Intent{Kind: IntentMove, Direction: d}
}

// ActionIntent builds an action intent
func ActionIntent(a Action) Intent {
	return Intent{Kind: IntentAction, Action: a}
}

// ParseIntent accepts either a direction name or an action name
func ParseIntent(name string) (Intent, error) {
	if d, err := ParseDirection(name); err == nil {
		return MoveIntent(d), nil
	}
	if a, err := ParseAction(name); err == nil {
		return ActionIntent(a), nil
	}
	return Intent{}, fmt.Errorf("invalid intent %q: want up|down|left|right|play|restart|menu|reload", name)
}

func (i Intent) String() string {
	if i.Kind == IntentMove {
		return i.Direction.String()
	}
	return i.Action.String()
}
