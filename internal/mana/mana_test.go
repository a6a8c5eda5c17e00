package mana

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCost(t *testing.T) {
	tests := []struct {
		input   string
		generic int
		colored map[Color]int
		hybrid  int
		total   int
		x       bool
	}{
		{"", 0, nil, 0, 0, false},
		{"{2}{W}{U}", 2, map[Color]int{White: 1, Blue: 1}, 0, 4, false},
		{"{X}{R}", 0, map[Color]int{Red: 1}, 0, 1, true},
		{"{2}{R}{R}", 2, map[Color]int{Red: 2}, 0, 4, false},
		{"{C}{C}", 0, map[Color]int{Colorless: 2}, 0, 2, false},
		{"{W/U}{W/U}{1}", 1, nil, 2, 3, false},
		{"{g}", 0, map[Color]int{Green: 1}, 0, 1, false},
		{"not a cost", 0, nil, 0, 0, false},
		{"{", 0, nil, 0, 0, false},
		{"{Q}{1}", 1, nil, 0, 1, false},
		{"{9223372036854775807}{1}", 1, nil, 0, 1, false},
		{"{1000}{1001}", 1000, nil, 0, 1000, false},
		{"{-3}{B}", 0, map[Color]int{Black: 1}, 0, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseCost(tt.input)
			assert.Equal(t, tt.generic, got.Generic, "generic")
			assert.Equal(t, tt.hybrid, got.Hybrid, "hybrid")
			assert.Equal(t, tt.total, got.Total, "total")
			assert.Equal(t, tt.x, got.X, "x")
			for _, c := range AllColors {
				assert.Equal(t, tt.colored[c], got.Colored[c], "color %s", c)
			}
		})
	}
}

func TestCanPay(t *testing.T) {
	cost := ParseCost("{2}{W}{U}")

	pool := Pool{}
	pool.Add(White, 1)
	pool.Add(Blue, 1)
	assert.False(t, CanPay(pool, cost), "generic part uncovered")

	pool.Add(Red, 2)
	assert.True(t, CanPay(pool, cost))

	short := Pool{}
	short.Add(White, 4)
	assert.False(t, CanPay(short, cost), "missing blue cannot be covered by white")
}

// TestPayAtomic checks that a failed payment returns the input pool untouched.
func TestPayAtomic(t *testing.T) {
	pool := Pool{}
	pool.Add(Green, 2)
	pool.Add(Colorless, 1)
	before := pool

	got, err := Pay(pool, ParseCost("{3}{G}{G}"), nil)
	require.ErrorIs(t, err, ErrInsufficientMana)
	assert.Equal(t, before, got)
	assert.Equal(t, before, pool)
}

func TestPayHugeCostOnEmptyPool(t *testing.T) {
	for _, text := range []string{
		"{9223372036854775807}{1}",
		"{1000}{1000}{1000}",
	} {
		t.Run(text, func(t *testing.T) {
			got, err := Pay(Pool{}, ParseCost(text), Allocation{Colorless: 5})
			require.ErrorIs(t, err, ErrInsufficientMana)
			assert.Equal(t, Pool{}, got)
		})
	}
}

func TestPayRejectsNegativeCost(t *testing.T) {
	pool := Pool{}
	pool.Add(Red, 2)

	for name, cost := range map[string]Cost{
		"negative total":   {Total: -5},
		"negative colored": {Colored: [numColors]int{Red: -1}, Total: -1},
	} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, CanPay(pool, cost))
			got, err := Pay(pool, cost, nil)
			require.ErrorIs(t, err, ErrInsufficientMana)
			assert.Equal(t, pool, got)
		})
	}
}

func TestPayFallbackOrder(t *testing.T) {
	pool := Pool{}
	pool.Add(Colorless, 1)
	pool.Add(White, 1)
	pool.Add(Green, 3)

	got, err := Pay(pool, ParseCost("{2}{G}"), nil)
	require.NoError(t, err)

	// {G} from green, then generic 2 from C then W.
	assert.Equal(t, 0, got.Get(Colorless))
	assert.Equal(t, 0, got.Get(White))
	assert.Equal(t, 2, got.Get(Green))
	assert.Equal(t, pool.Total()-3, got.Total())
}

func TestPayExplicitAllocation(t *testing.T) {
	pool := Pool{}
	pool.Add(Colorless, 2)
	pool.Add(Red, 3)

	// Ask for more red than needed; allocation is clamped to the generic requirement.
	got, err := Pay(pool, ParseCost("{2}"), Allocation{Red: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Get(Red))
	assert.Equal(t, 2, got.Get(Colorless))
}

func TestPayAllocationClampedToPool(t *testing.T) {
	pool := Pool{}
	pool.Add(Blue, 1)
	pool.Add(Colorless, 2)

	got, err := Pay(pool, ParseCost("{3}"), Allocation{Blue: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Total())
}

func TestPayHybridUsesAnyMana(t *testing.T) {
	pool := Pool{}
	pool.Add(Black, 1)

	got, err := Pay(pool, ParseCost("{W/U}"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Total())
}

func TestPoolRemoveClamps(t *testing.T) {
	pool := Pool{}
	pool.Add(Red, 2)
	pool.Remove(Red, 5)
	assert.Equal(t, 0, pool.Get(Red))

	pool.Add(Blue, -3)
	assert.Equal(t, 0, pool.Get(Blue))
}

func TestPoolAddSaturates(t *testing.T) {
	var pool Pool
	pool.Add(White, math.MaxInt)
	assert.Equal(t, MaxAmount, pool.Get(White))
	pool.Add(White, math.MaxInt)
	assert.Equal(t, MaxAmount, pool.Get(White))

	pool.Add(Blue, MaxAmount-1)
	pool.Add(Blue, 5)
	assert.Equal(t, MaxAmount, pool.Get(Blue))

	var decoded Pool
	require.NoError(t, json.Unmarshal([]byte(`{"G":9223372036854775807,"R":-4}`), &decoded))
	assert.Equal(t, MaxAmount, decoded.Get(Green))
	assert.Equal(t, 0, decoded.Get(Red))
}

func TestPoolJSON(t *testing.T) {
	pool := Pool{}
	pool.Add(Blue, 2)
	data, err := json.Marshal(pool)
	require.NoError(t, err)
	assert.JSONEq(t, `{"W":0,"U":2,"B":0,"R":0,"G":0,"C":0}`, string(data))

	var back Pool
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, pool, back)
}

func TestParseColor(t *testing.T) {
	c, ok := ParseColor("u")
	require.True(t, ok)
	assert.Equal(t, Blue, c)

	_, ok = ParseColor("P")
	assert.False(t, ok)
	_, ok = ParseColor("")
	assert.False(t, ok)
}

func TestDetectLandMana(t *testing.T) {
	tests := []struct {
		name     string
		typeLine string
		oracle   string
		want     []Color
	}{
		{"basic plains", "Basic Land — Plains", "({T}: Add {W}.)", []Color{White}},
		{"dual type beats text", "Land — Island Swamp", "Add {G}.", []Color{Blue, Black}},
		{"any color", "Land", "{T}: Add one mana of any color.", FiveColors},
		{"add run", "Land", "{T}: Add {R} or {G}.", []Color{Red, Green}},
		{"colorless utility", "Land", "{T}: Add {C}.", []Color{Colorless}},
		{"nothing recognizable", "Land", "Sacrifice this land: draw a card.", []Color{Colorless}},
		{"produce lookback", "Artifact", "This can produce {B} when tapped.", []Color{Black}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLandMana(tt.typeLine, tt.oracle))
		})
	}
}
