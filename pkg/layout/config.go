package layout

import (
	"strings"
	"time"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
)

// Direction is the axis along which ranks advance.
type Direction string

const (
	LeftToRight Direction = "LR"
	RightToLeft Direction = "RL"
	TopToBottom Direction = "TB"
	BottomToTop Direction = "BT"
)

// Directions lists every supported direction.
var Directions = []Direction{LeftToRight, RightToLeft, TopToBottom, BottomToTop}

// ParseDirection accepts "LR", "RL", "TB" and "BT" in any case.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case LeftToRight, RightToLeft, TopToBottom, BottomToTop:
		return d, nil
	}
	return "", mmerrors.New(mmerrors.ErrCodeInvalidInput, "unknown layout direction %q", s)
}

// horizontal reports whether ranks advance along the x axis.
func (d Direction) horizontal() bool { return d == LeftToRight || d == RightToLeft }

// reversed reports whether ranks advance toward decreasing coordinates.
func (d Direction) reversed() bool { return d == RightToLeft || d == BottomToTop }

// Default geometry.
const (
	DefaultNodeWidth   = 250.0
	DefaultNodeHeight  = 80.0
	DefaultRankSpacing = 100.0
	DefaultNodeSpacing = 40.0
	DefaultTimeout     = 2 * time.Second
)

// Config controls the engine. Zero fields fall back to the defaults.
type Config struct {
	Direction   Direction
	NodeWidth   float64
	NodeHeight  float64
	RankSpacing float64 // gap between adjacent rank lines
	NodeSpacing float64 // minimum gap between neighbours on a rank
	// Timeout caps a single Compute call. Negative disables the cap.
	Timeout time.Duration
}

// DefaultConfig returns the default left-to-right configuration.
func DefaultConfig() Config {
	return Config{
		Direction:   LeftToRight,
		NodeWidth:   DefaultNodeWidth,
		NodeHeight:  DefaultNodeHeight,
		RankSpacing: DefaultRankSpacing,
		NodeSpacing: DefaultNodeSpacing,
		Timeout:     DefaultTimeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Direction == "" {
		c.Direction = d.Direction
	}
	if c.NodeWidth <= 0 {
		c.NodeWidth = d.NodeWidth
	}
	if c.NodeHeight <= 0 {
		c.NodeHeight = d.NodeHeight
	}
	if c.RankSpacing <= 0 {
		c.RankSpacing = d.RankSpacing
	}
	if c.NodeSpacing <= 0 {
		c.NodeSpacing = d.NodeSpacing
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// Validate reports configuration values the engine cannot use.
func (c Config) Validate() error {
	if c.Direction != "" {
		if _, err := ParseDirection(string(c.Direction)); err != nil {
			return err
		}
	}
	if c.NodeWidth < 0 || c.NodeHeight < 0 {
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "node size must not be negative")
	}
	if c.RankSpacing < 0 || c.NodeSpacing < 0 {
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "spacing must not be negative")
	}
	return nil
}
