package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nrebei2/lunarhaze/game/board"
	"github.com/nrebei2/lunarhaze/game/entity"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	// ErrLevelNotFound is returned when no level has the requested name.
	ErrLevelNotFound = errors.New("resource: level not found")
	// ErrInvalidLevel wraps every validation failure.
	ErrInvalidLevel = errors.New("resource: invalid level")
)

// Format is the encoding of a level file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Row glyphs. Rows are listed top (highest y) first.
var glyphs = map[rune]board.TileType{
	'.': board.Grass,
	'=': board.Road,
	':': board.Dirt,
	'_': board.Floor,
	'~': board.Water,
	'#': board.Wall,
}

// SpawnPoint places one enemy at level load.
type SpawnPoint struct {
	X            int          `json:"x" yaml:"x"`
	Y            int          `json:"y" yaml:"y"`
	Facing       string       `json:"facing,omitempty" yaml:"facing,omitempty"`
	Patrol       []board.Cell `json:"patrol,omitempty" yaml:"patrol,omitempty"`
	HP           int          `json:"hp,omitempty" yaml:"hp,omitempty"`
	RespawnTicks int          `json:"respawn_ticks,omitempty" yaml:"respawn_ticks,omitempty"`
	// Respawns caps how many times the enemy comes back. Zero disables respawning.
	Respawns int `json:"respawns,omitempty" yaml:"respawns,omitempty"`
}

// LevelData is the on-disk level description.
type LevelData struct {
	Name     string       `json:"name" yaml:"name"`
	TileSize float64      `json:"tile_size" yaml:"tile_size"`
	Rows     []string     `json:"rows" yaml:"rows"`
	Lit      []board.Cell `json:"lit,omitempty" yaml:"lit,omitempty"`
	// Blocked marks extra non-walkable cells on top of the row glyphs.
	Blocked []board.Cell `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	Player  board.Cell   `json:"player" yaml:"player"`
	Enemies []SpawnPoint `json:"enemies" yaml:"enemies"`
}

// Level is a validated level ready to build boards from.
type Level struct {
	Data          LevelData
	Width, Height int
	types         []board.TileType // [x*Height+y]
}

// ParseLevel decodes and validates raw level bytes.
func ParseLevel(raw []byte, format Format) (*Level, error) {
	var d LevelData
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(raw, &d)
	case FormatYAML:
		err = yaml.Unmarshal(raw, &d)
	default:
		return nil, fmt.Errorf("resource: unknown level format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("resource: decode level: %w", err)
	}
	return NewLevel(d)
}

// NewLevel validates d.
func NewLevel(d LevelData) (*Level, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidLevel)
	}
	if d.TileSize <= 0 {
		d.TileSize = 1
	}
	h := len(d.Rows)
	if h == 0 {
		return nil, fmt.Errorf("%w: %s: no rows", ErrInvalidLevel, d.Name)
	}
	w := len([]rune(d.Rows[0]))
	if w == 0 {
		return nil, fmt.Errorf("%w: %s: empty row", ErrInvalidLevel, d.Name)
	}

	l := &Level{Data: d, Width: w, Height: h, types: make([]board.TileType, w*h)}
	for i, row := range d.Rows {
		runes := []rune(row)
		if len(runes) != w {
			return nil, fmt.Errorf("%w: %s: row %d has width %d, want %d", ErrInvalidLevel, d.Name, i, len(runes), w)
		}
		y := h - 1 - i
		for x, r := range runes {
			tt, ok := glyphs[r]
			if !ok {
				return nil, fmt.Errorf("%w: %s: unknown glyph %q at (%d,%d)", ErrInvalidLevel, d.Name, r, x, y)
			}
			l.types[x*h+y] = tt
		}
	}

	for _, c := range d.Lit {
		if !l.inBounds(c) {
			return nil, fmt.Errorf("%w: %s: lit cell %v out of bounds", ErrInvalidLevel, d.Name, c)
		}
	}
	for _, c := range d.Blocked {
		if !l.inBounds(c) {
			return nil, fmt.Errorf("%w: %s: blocked cell %v out of bounds", ErrInvalidLevel, d.Name, c)
		}
	}
	if !l.walkable(d.Player) {
		return nil, fmt.Errorf("%w: %s: player spawn %v is not walkable", ErrInvalidLevel, d.Name, d.Player)
	}
	for i, e := range d.Enemies {
		at := board.Cell{X: e.X, Y: e.Y}
		if !l.walkable(at) {
			return nil, fmt.Errorf("%w: %s: enemy %d spawn %v is not walkable", ErrInvalidLevel, d.Name, i, at)
		}
		if _, ok := entity.ParseFacing(e.Facing); !ok {
			return nil, fmt.Errorf("%w: %s: enemy %d facing %q", ErrInvalidLevel, d.Name, i, e.Facing)
		}
		for _, p := range e.Patrol {
			if !l.inBounds(p) {
				return nil, fmt.Errorf("%w: %s: enemy %d waypoint %v out of bounds", ErrInvalidLevel, d.Name, i, p)
			}
		}
	}
	return l, nil
}

func (l *Level) inBounds(c board.Cell) bool {
	return c.X >= 0 && c.X < l.Width && c.Y >= 0 && c.Y < l.Height
}

func (l *Level) walkable(c board.Cell) bool {
	if !l.inBounds(c) || !l.types[c.X*l.Height+c.Y].DefaultWalkable() {
		return false
	}
	for _, b := range l.Data.Blocked {
		if b == c {
			return false
		}
	}
	return true
}

// Name returns the level name.
func (l *Level) Name() string { return l.Data.Name }

// NewBoard builds a fresh board for one play session.
func (l *Level) NewBoard(logger *zap.Logger) *board.Board {
	b := board.New(l.Width, l.Height, l.Data.TileSize, logger)
	for x := 0; x < l.Width; x++ {
		for y := 0; y < l.Height; y++ {
			tt := l.types[x*l.Height+y]
			b.SetType(x, y, tt)
			b.SetWalkable(x, y, tt.DefaultWalkable())
		}
	}
	for _, c := range l.Data.Blocked {
		b.SetWalkable(c.X, c.Y, false)
	}
	for _, c := range l.Data.Lit {
		b.SetLit(c.X, c.Y, true)
	}
	return b
}

// Encode serialises the level back to its JSON form.
func (l *Level) Encode() ([]byte, error) {
	return json.Marshal(l.Data)
}
