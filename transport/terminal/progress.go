package terminal

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Progress animates the fill of the pending-move bar from 0 to 1 over the
// move's delay
type Progress struct {
	tween *gween.Tween
	value float32
}

// Start begins a new animation lasting d. A zero d completes at once.
func (p *Progress) Start(d time.Duration) {
	if d <= 0 {
		p.tween = nil
		p.value = 1
		return
	}
	p.tween = gween.New(0, 1, float32(d.Seconds()), ease.Linear)
	p.value = 0
}

// Advance moves the animation forward by dt and returns the new value
func (p *Progress) Advance(dt time.Duration) float32 {
	if p.tween == nil {
		return p.value
	}
	current, finished := p.tween.Update(float32(dt.Seconds()))
	p.value = current
	if finished {
		p.value = 1
		p.tween = nil
	}
	return p.value
}

// Stop ends the animation and empties the bar
func (p *Progress) Stop() {
	p.tween = nil
	p.value = 0
}

// Animating reports whether Advance still changes the value
func (p *Progress) Animating() bool {
	return p.tween != nil
}

// Value returns the current fill
func (p *Progress) Value() float32 {
	return p.value
}
