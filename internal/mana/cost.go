// internal/mana/cost.go
package mana

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrInsufficientMana is returned by Pay when the pool cannot cover a cost.
var ErrInsufficientMana = errors.New("Insufficient mana")

var symbolPattern = regexp.MustCompile(`\{([^}]+)\}`)

// maxGenericSymbol is the largest numeric symbol ParseCost accepts. Larger
// numbers are skipped like any other unrecognized symbol.
const maxGenericSymbol = 1000

// Cost is a parsed mana cost such as "{2}{W}{U}".
type Cost struct {
	Generic int
	Colored [numColors]int
	// Hybrid counts symbols like {W/U}. They add to Total only.
	Hybrid int
	Total  int
	X      bool
}

// ParseCost tokenizes bracketed mana symbols. Numbers add to the generic
// amount, color symbols to that color, {X} adds nothing, and a hybrid symbol
// adds one to Total without a color. Unrecognized symbols are skipped, so
// malformed input yields a zero cost rather than an error.
func ParseCost(text string) Cost {
	var cost Cost
	for _, match := range symbolPattern.FindAllStringSubmatch(text, -1) {
		symbol := strings.ToUpper(strings.TrimSpace(match[1]))

		if symbol == "X" {
			cost.X = true
			continue
		}
		if c, ok := ParseColor(symbol); ok {
			cost.Colored[c] = min(cost.Colored[c]+1, MaxAmount)
			cost.Total = min(cost.Total+1, MaxAmount)
			continue
		}
		if n, err := strconv.Atoi(symbol); err == nil {
			if n >= 0 && n <= maxGenericSymbol {
				cost.Generic = min(cost.Generic+n, MaxAmount)
				cost.Total = min(cost.Total+n, MaxAmount)
			}
			continue
		}
		if strings.Contains(symbol, "/") {
			cost.Hybrid = min(cost.Hybrid+1, MaxAmount)
			cost.Total = min(cost.Total+1, MaxAmount)
		}
	}
	return cost
}

// ColoredTotal sums the colored requirements.
func (c Cost) ColoredTotal() int {
	n := 0
	for _, v := range c.Colored {
		n += v
	}
	return n
}

// GenericRequirement is what remains of Total after colored symbols.
// Hybrid symbols are payable with any mana and fall in here.
func (c Cost) GenericRequirement() int {
	return c.Total - c.ColoredTotal()
}

// CanPay reports whether pool covers every colored symbol of cost and still
// has enough left over for the generic remainder.
func CanPay(pool Pool, cost Cost) bool {
	if cost.GenericRequirement() < 0 {
		return false
	}
	remaining := 0
	for _, col := range AllColors {
		if cost.Colored[col] < 0 || pool[col] < cost.Colored[col] {
			return false
		}
		remaining += pool[col] - cost.Colored[col]
	}
	return remaining >= cost.GenericRequirement()
}

// Allocation names how much of each color the caller wants spent on the
// generic portion of a cost before auto-payment kicks in.
type Allocation map[Color]int

// Pay deducts cost from pool. Colored symbols come out first, then the
// caller's allocation (clamped to what is left), then the rest of the generic
// requirement in the order C, W, U, B, R, G.
//
// Pay is atomic: on failure the returned pool equals the input.
func Pay(pool Pool, cost Cost, alloc Allocation) (Pool, error) {
	if !CanPay(pool, cost) {
		return pool, ErrInsufficientMana
	}

	next := pool
	for _, col := range AllColors {
		next[col] -= cost.Colored[col]
	}

	generic := cost.GenericRequirement()
	for _, col := range AllColors {
		if generic == 0 {
			break
		}
		want := alloc[col]
		if want <= 0 {
			continue
		}
		take := min(want, next[col], generic)
		if take < 0 {
			return pool, ErrInsufficientMana
		}
		next[col] -= take
		generic -= take
	}

	for _, col := range fallbackOrder {
		if generic == 0 {
			break
		}
		take := min(next[col], generic)
		if take < 0 {
			return pool, ErrInsufficientMana
		}
		next[col] -= take
		generic -= take
	}

	if generic > 0 {
		return pool, ErrInsufficientMana
	}
	return next, nil
}
