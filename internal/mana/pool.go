// internal/mana/pool.go
package mana

import (
	"encoding/json"
	"strings"
)

// Color indexes a mana pool counter.
type Color int

const (
	White Color = iota
	Blue
	Black
	Red
	Green
	Colorless

	numColors = 6
)

// symbols maps a Color to its single-letter symbol.
var symbols = [numColors]string{"W", "U", "B", "R", "G", "C"}

// AllColors lists every pool color in symbol order (W, U, B, R, G, C).
var AllColors = [numColors]Color{White, Blue, Black, Red, Green, Colorless}

// FiveColors is every colored symbol, excluding colorless.
var FiveColors = []Color{White, Blue, Black, Red, Green}

// fallbackOrder is the order auto-payment draws generic mana from.
var fallbackOrder = [numColors]Color{Colorless, White, Blue, Black, Red, Green}

// String returns the single-letter symbol, or "?" for an out-of-range value.
func (c Color) String() string {
	if c < 0 || int(c) >= numColors {
		return "?"
	}
	return symbols[c]
}

// ParseColor resolves a mana symbol ("W", "u", ...) to a Color.
// It is the only place a string becomes a Color.
func ParseColor(s string) (Color, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, sym := range symbols {
		if sym == s {
			return Color(i), true
		}
	}
	return 0, false
}

// MaxAmount caps every pool counter and every parsed cost component.
const MaxAmount = 1 << 20

// Pool is a player's spendable mana, one counter per Color.
// No method ever drives a counter below zero.
type Pool [numColors]int

// Get returns the counter for c.
func (p *Pool) Get(c Color) int {
	return p[c]
}

// Add increases c by amount, saturating at MaxAmount. Non-positive amounts
// are ignored.
func (p *Pool) Add(c Color, amount int) {
	if amount <= 0 {
		return
	}
	p[c] = min(p[c]+min(amount, MaxAmount), MaxAmount)
}

// Remove decreases c by amount, clamping at zero.
func (p *Pool) Remove(c Color, amount int) {
	if amount <= 0 {
		return
	}
	p[c] -= amount
	if p[c] < 0 {
		p[c] = 0
	}
}

// Clear empties the pool.
func (p *Pool) Clear() {
	*p = Pool{}
}

// Total is the sum of every counter.
func (p Pool) Total() int {
	total := 0
	for _, n := range p {
		total += n
	}
	return total
}

// MarshalJSON renders the pool as {"W":0,"U":0,...} for clients.
func (p Pool) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, numColors)
	for i, sym := range symbols {
		m[sym] = p[i]
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts the symbol-keyed object form. Unknown keys are ignored.
func (p *Pool) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*p = Pool{}
	for k, v := range m {
		if c, ok := ParseColor(k); ok {
			p.Add(c, v)
		}
	}
	return nil
}
