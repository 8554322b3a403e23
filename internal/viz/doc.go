// Package viz draws a running scenario in the terminal.
//
// The live view is a Bubble Tea program:
//
//   - [Model]: top-down braille map of the X/Z plane with a telemetry panel
//   - [Picker]: preset menu that opens a [Model]
//   - [Canvas]: braille pixel canvas
//
// # Key Bindings
//
//	Space     - Pause/Resume
//	Backspace - Rebuild the scenario
//	Tab       - Track the next craft
//	WASD RF   - Translate the player craft
//	IJKL UO   - Rotate the player craft
//	X         - Drop manual input
//	?         - Show help overlay
package viz
