package services

import (
	"fmt"

	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
)

type SeedKind string

const (
	SeedQualifier SeedKind = "QUALIFIER"
	SeedBye       SeedKind = "BYE"
	SeedWildcard  SeedKind = "WILDCARD"
)

// Seed is one bracket position, 0 being the top seed.
type Seed struct {
	Kind         SeedKind
	CompetitorID int64
}

// PlannedBattle is a battle shell addressed by its index in BracketPlan.Battles.
// Edges point at other plan indices; the store rewrites them to battle ids.
type PlannedBattle struct {
	Round      int
	Bracket    entities.Bracket
	LeftSeed   *int
	RightSeed  *int
	WinnerNext *int
	LoserNext  *int
}

type BracketPlan struct {
	Format      entities.Format
	BracketSize int
	Seeds       []Seed
	Battles     []PlannedBattle
}

func (p BracketPlan) ByeCount() int {
	count := 0
	for _, seed := range p.Seeds {
		if seed.Kind == SeedBye {
			count++
		}
	}
	return count
}

type BracketInput struct {
	Format        entities.Format
	FullInclusion bool
	// SizeCap is the configured tournament bracket size; zero means uncapped.
	SizeCap int
	// Ranked holds qualifier competitor ids ordered by qualifying position.
	Ranked []int64
}

// BuildBracket pre-creates the whole battle graph for a format. DRIFT_WARS only
// gets its opening battle; later ladder battles come from NextLadderBattle.
func BuildBracket(input BracketInput) (BracketPlan, error) {
	n := len(input.Ranked)
	if !input.Format.Valid() {
		return BracketPlan{}, domainerrors.ErrInvalidInput
	}
	if n < input.Format.MinimumCompetitors(input.FullInclusion) {
		return BracketPlan{}, fmt.Errorf("%w: %s needs %d, have %d",
			domainerrors.ErrInsufficientCompetitors,
			input.Format,
			input.Format.MinimumCompetitors(input.FullInclusion),
			n,
		)
	}
	if input.SizeCap != 0 && !IsPowerOfTwo(input.SizeCap) {
		return BracketPlan{}, fmt.Errorf("%w: bracket size %d is not a power of two", domainerrors.ErrInvalidInput, input.SizeCap)
	}

	if input.Format == entities.FormatDriftWars {
		return buildLadder(input.Ranked), nil
	}

	wildcard := input.Format == entities.FormatWildcard
	field := n
	if wildcard {
		field++
	}
	size := FloorPowerOfTwo(field)
	if input.FullInclusion {
		size = CeilPowerOfTwo(field)
	}
	if input.SizeCap > 0 && input.SizeCap < size {
		size = input.SizeCap
	}
	if size < 2 {
		return BracketPlan{}, fmt.Errorf("%w: bracket size %d", domainerrors.ErrInsufficientCompetitors, size)
	}

	plan := BracketPlan{
		Format:      input.Format,
		BracketSize: size,
		Seeds:       seedField(input.Ranked, size, wildcard),
	}
	builder := &planBuilder{}
	switch input.Format {
	case entities.FormatDoubleElimination:
		builder.doubleElimination(size)
	default:
		builder.singleElimination(size, true)
	}
	plan.Battles = builder.battles
	return plan, nil
}

func seedField(ranked []int64, size int, wildcard bool) []Seed {
	seats := size
	if wildcard {
		seats--
	}
	seeds := make([]Seed, 0, size)
	for i := 0; i < seats; i++ {
		if i < len(ranked) {
			seeds = append(seeds, Seed{Kind: SeedQualifier, CompetitorID: ranked[i]})
			continue
		}
		seeds = append(seeds, Seed{Kind: SeedBye})
	}
	if wildcard {
		seeds = append(seeds, Seed{Kind: SeedWildcard})
	}
	return seeds
}

type planBuilder struct {
	battles []PlannedBattle
}

func (b *planBuilder) add(round int, bracket entities.Bracket) int {
	b.battles = append(b.battles, PlannedBattle{Round: round, Bracket: bracket})
	return len(b.battles) - 1
}

func (b *planBuilder) seat(index int, left int, right int) {
	b.battles[index].LeftSeed = intPtr(left)
	b.battles[index].RightSeed = intPtr(right)
}

func (b *planBuilder) winnerTo(from int, to int) {
	b.battles[from].WinnerNext = intPtr(to)
}

func (b *planBuilder) loserTo(from int, to int) {
	b.battles[from].LoserNext = intPtr(to)
}

// upperRounds creates the seeded opening round and every later upper round.
// Parent j of a round takes the winners of children j and M-1-j, so the top
// two seeds can only meet in the last round. The last round gets finalRound.
func (b *planBuilder) upperRounds(size int, finalRound int) [][]int {
	rounds := [][]int{}
	opening := make([]int, 0, size/2)
	roundNumber := 1
	if size == 2 {
		roundNumber = finalRound
	}
	for i := 0; i < size/2; i++ {
		index := b.add(roundNumber, entities.BracketUpper)
		b.seat(index, i, size-1-i)
		opening = append(opening, index)
	}
	rounds = append(rounds, opening)

	for r := 2; len(rounds[len(rounds)-1]) > 1; r++ {
		previous := rounds[len(rounds)-1]
		count := len(previous) / 2
		roundNumber := r
		if count == 1 {
			roundNumber = finalRound
		}
		current := make([]int, 0, count)
		for j := 0; j < count; j++ {
			current = append(current, b.add(roundNumber, entities.BracketUpper))
		}
		for j := 0; j < count; j++ {
			b.winnerTo(previous[j], current[j])
			b.winnerTo(previous[len(previous)-1-j], current[j])
		}
		rounds = append(rounds, current)
	}
	return rounds
}

func (b *planBuilder) singleElimination(size int, playoff bool) {
	rounds := b.upperRounds(size, entities.RoundGrandFinal)
	if !playoff || len(rounds) < 2 {
		return
	}
	semis := rounds[len(rounds)-2]
	third := b.add(entities.RoundPlayoff, entities.BracketUpper)
	for _, semi := range semis {
		b.loserTo(semi, third)
	}
}

// doubleElimination builds the upper bracket, a lower bracket of 2k-2 rounds
// fed by every upper round's losers, and a grand final. Lower round j runs at
// round j+1 so each battle runs after the battles feeding it.
func (b *planBuilder) doubleElimination(size int) {
	if size == 2 {
		b.upperRounds(size, entities.RoundGrandFinal)
		return
	}
	k := log2(size)
	upper := b.upperRounds(size, k)

	lowerRound := func(j int) int {
		if j == 2*k-2 {
			return entities.RoundLowerFinal
		}
		return j + 1
	}
	addLower := func(j int, count int) []int {
		indices := make([]int, 0, count)
		for t := 0; t < count; t++ {
			indices = append(indices, b.add(lowerRound(j), entities.BracketLower))
		}
		return indices
	}

	first := upper[0]
	previous := addLower(1, len(first)/2)
	for t := range previous {
		b.loserTo(first[t], previous[t])
		b.loserTo(first[len(first)-1-t], previous[t])
	}

	for m := 2; m <= k; m++ {
		dropping := upper[m-1]
		merge := addLower(2*m-2, len(dropping))
		for t := range merge {
			b.winnerTo(previous[t], merge[t])
			b.loserTo(dropping[len(dropping)-1-t], merge[t])
		}
		previous = merge
		if m == k {
			break
		}
		paired := addLower(2*m-1, len(merge)/2)
		for t := range paired {
			b.winnerTo(merge[t], paired[t])
			b.winnerTo(merge[len(merge)-1-t], paired[t])
		}
		previous = paired
	}

	grandFinal := b.add(entities.RoundGrandFinal, entities.BracketUpper)
	b.winnerTo(upper[k-1][0], grandFinal)
	b.winnerTo(previous[0], grandFinal)
}

// buildLadder seats the two lowest qualifiers in the opening DRIFT_WARS battle.
func buildLadder(ranked []int64) BracketPlan {
	n := len(ranked)
	seeds := make([]Seed, 0, n)
	for _, id := range ranked {
		seeds = append(seeds, Seed{Kind: SeedQualifier, CompetitorID: id})
	}
	builder := &planBuilder{}
	opening := builder.add(1, entities.BracketUpper)
	builder.seat(opening, n-2, n-1)
	return BracketPlan{
		Format:      entities.FormatDriftWars,
		BracketSize: n,
		Seeds:       seeds,
		Battles:     builder.battles,
	}
}

// NextLadderBattle returns the seed index of the challenger for the battle
// following round lastRound, or false once the top qualifier has defended.
func NextLadderBattle(fieldSize int, lastRound int) (int, bool) {
	challenger := fieldSize - 2 - lastRound
	if challenger < 0 {
		return 0, false
	}
	return challenger, true
}

func IsPowerOfTwo(value int) bool {
	return value > 0 && value&(value-1) == 0
}

func FloorPowerOfTwo(value int) int {
	if value < 1 {
		return 0
	}
	result := 1
	for result*2 <= value {
		result *= 2
	}
	return result
}

func CeilPowerOfTwo(value int) int {
	result := 1
	for result < value {
		result *= 2
	}
	return result
}

func log2(value int) int {
	result := 0
	for value > 1 {
		value >>= 1
		result++
	}
	return result
}

func intPtr(value int) *int {
	return &value
}
