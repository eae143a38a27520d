// Package session keeps bounded per-session conversation history.
//
// Invariants:
// - Each session holds at most MaxHistoryLength turns, oldest evicted first.
// - Mutations on the same session are serialized.
// - Snapshots are deep copies; callers never see internal slices.
//
// Usage:
//
//	store := session.NewStore()
//	store.Append("session-1", session.Turn{Question: "hi", Answer: "hello"})
//	history := store.GetOrCreate("session-1")
//	_ = history
package session
