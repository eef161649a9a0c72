// Package audio plays Cat Tower's sound with beep.
//
// A Soundboard observes a session runtime. Moves, hazards, checkpoints, goals
// and time-outs each trigger a short synthesized cue, and every game state has
// a looping theme that is swapped when the state changes.
package audio
