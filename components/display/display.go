// Package display defines the character display and status outputs the presenter draws on.
package display

import "context"

// Display is a small character display addressed by column and row.
type Display interface {
	// SetCursor moves the write position.
	SetCursor(ctx context.Context, col, row int) error

	// WriteText writes text at the cursor and advances it.
	WriteText(ctx context.Context, text string) error

	// WriteNumber writes n in the given radix at the cursor and advances it.
	WriteNumber(ctx context.Context, n int32, radix int) error

	// Clear blanks the display and homes the cursor.
	Clear(ctx context.Context) error
}

// StatusPanel is the seven-segment display and LED bank.
type StatusPanel interface {
	// ShowNumber shows n on the seven-segment display.
	ShowNumber(ctx context.Context, n uint32) error

	// SetLEDs sets the LED bank, bit n for LED n.
	SetLEDs(ctx context.Context, leds uint16) error
}
