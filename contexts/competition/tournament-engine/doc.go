// Package tournamentengine runs drift tournaments inside the competition
// context.
//
// The module owns the tournament lifecycle from registration through judged
// qualifying laps to the battle bracket, and writes every state change to the
// outbox in the same transaction. Bracket building, vote consensus and bye
// advancement live in domain services; storage sits behind ports with memory
// and postgres adapters.
package tournamentengine
