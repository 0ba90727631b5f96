// Package provider defines the backend adapter contract. Each adapter
// speaks one model backend's wire format and converts it to the engine's
// neutral types (Request, TurnResult, Delta), so backend protocol details
// stay invisible to the orchestration loop.
//
// The package also owns the pieces every adapter shares: HTTP status
// classification into the api error taxonomy, the retry decorator, and
// the pricing table used to compute per-turn cost.
package provider
