// Package terminal renders a Trail Grid session in a terminal with tcell.
//
// The Renderer paints both grids, the token, the trail and the score onto
// any Canvas (a tcell.Screen in production). App runs the input loop:
// arrow keys and space go to the game, render events arrive as tcell
// interrupts, and a gween tween animates the pending move's progress bar.
package terminal
