// Package terminal plays Cat Tower in a terminal using tcell.
//
// A Renderer subscribes to a session runtime and redraws the tower, the HUD
// and the menu or result overlays whenever a published view changes. App
// reads key presses and turns them into intents:
//
//	WASD / arrows   slide the cat
//	r               return to the last checkpoint
//	Enter           play from the menu, restart otherwise
//	m               back to the menu
//	Esc, q, Ctrl-C  quit
package terminal
