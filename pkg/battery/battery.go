// Package battery turns robot battery updates into display readings.
package battery

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/mlsorensen/purpleeye"
)

// Tier is the discrete icon level shown for a battery percentage.
type Tier int

const (
	Empty Tier = iota
	Quarter
	Half
	ThreeQuarters
	Full
)

// TierFor maps a percentage to its icon tier. Each threshold is exclusive, so
// exactly 85 is ThreeQuarters.
func TierFor(percent uint8) Tier {
	switch {
	case percent > 85:
		return Full
	case percent > 65:
		return ThreeQuarters
	case percent > 40:
		return Half
	case percent > 20:
		return Quarter
	default:
		return Empty
	}
}

func (t Tier) String() string {
	switch t {
	case Full:
		return "full"
	case ThreeQuarters:
		return "three-quarters"
	case Half:
		return "half"
	case Quarter:
		return "quarter"
	default:
		return "empty"
	}
}

// Icon returns the icon class name for the tier.
func (t Tier) Icon() string {
	return "fa-battery-" + t.String()
}

// Reading is a rendered battery level.
type Reading struct {
	Percent uint8
	Tier    Tier
}

func NewReading(percent uint8) Reading {
	return Reading{Percent: percent, Tier: TierFor(percent)}
}

// Label is the text shown next to the icon, e.g. "72%".
func (r Reading) Label() string {
	return fmt.Sprintf("%d%%", r.Percent)
}

// Renderer displays battery readings.
type Renderer interface {
	RenderBattery(Reading)
}

// RendererFunc adapts a function to a Renderer.
type RendererFunc func(Reading)

func (f RendererFunc) RenderBattery(r Reading) { f(r) }

// Monitor renders every battery update of a robot connection.
type Monitor struct {
	renderer Renderer

	mu   sync.Mutex
	last *Reading
}

func NewMonitor(r Renderer) *Monitor {
	return &Monitor{renderer: r}
}

// Run renders updates until the channel is closed, which returns nil, or ctx is
// done, which returns the context error. Failed updates are logged and skipped.
func (m *Monitor) Run(ctx context.Context, updates <-chan purpleeye.BatteryUpdate) error {
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Error != nil {
				log.Printf("battery update error: %v", update.Error)
				continue
			}
			m.render(NewReading(update.Percent))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Monitor) render(r Reading) {
	m.mu.Lock()
	m.last = &r
	m.mu.Unlock()
	m.renderer.RenderBattery(r)
}

// Last returns the most recently rendered reading.
func (m *Monitor) Last() (Reading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Reading{}, false
	}
	return *m.last, true
}
