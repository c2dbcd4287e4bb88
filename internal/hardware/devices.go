package hardware

import "fmt"

// Display geometry of the 16x2 character LCD.
const (
	LCDColumns = 16
	LCDRows    = 2
)

// servoDuty maps supported servo angles to PWM duty percentages at 50 Hz.
var servoDuty = map[int]float64{
	0:   2.5,
	90:  7.5,
	180: 12.5,
}

// ServoDuty returns the duty cycle for angle, or false if the angle is unsupported.
func ServoDuty(angle int) (float64, bool) {
	d, ok := servoDuty[angle]
	return d, ok
}

// stepperClockwise and stepperCounterClockwise are the four-phase coil patterns.
var (
	stepperClockwise = [4][4]byte{
		{1, 0, 1, 0},
		{0, 1, 1, 0},
		{0, 1, 0, 1},
		{1, 0, 0, 1},
	}
	stepperCounterClockwise = [4][4]byte{
		{1, 0, 0, 1},
		{0, 1, 0, 1},
		{0, 1, 1, 0},
		{1, 0, 1, 0},
	}
)

// StepperSequence returns the coil pattern for the given direction.
func StepperSequence(clockwise bool) [4][4]byte {
	if clockwise {
		return stepperClockwise
	}
	return stepperCounterClockwise
}

// LCDLines splits msg over the display: up to 16 characters on line one,
// the next 16 on line two, the rest is dropped.
func LCDLines(msg string) []string {
	r := []rune(msg)
	if len(r) <= LCDColumns {
		return []string{msg}
	}
	end := len(r)
	if end > LCDColumns*LCDRows {
		end = LCDColumns * LCDRows
	}
	return []string{string(r[:LCDColumns]), string(r[LCDColumns:end])}
}

// keypadLabels4 and keypadLabels3 are the legends of the supported keypads.
var (
	keypadLabels4 = [4][4]string{
		{"1", "2", "3", "A"},
		{"4", "5", "6", "B"},
		{"7", "8", "9", "C"},
		{"*", "0", "#", "D"},
	}
	keypadLabels3 = [4][3]string{
		{"1", "2", "3"},
		{"4", "5", "6"},
		{"7", "8", "9"},
		{"*", "0", "#"},
	}
)

// KeypadLabel returns the legend of the key at row/col for a keypad with
// the given number of columns (3 or 4).
func KeypadLabel(row, col, columns int) (string, error) {
	if row < 0 || row > 3 || col < 0 || col >= columns {
		return "", fmt.Errorf("%w: key %d,%d outside %dx%d keypad", ErrHardware, row, col, 4, columns)
	}
	switch columns {
	case 4:
		return keypadLabels4[row][col], nil
	case 3:
		return keypadLabels3[row][col], nil
	default:
		return "", fmt.Errorf("%w: %d-column keypad", ErrUnsupported, columns)
	}
}

// KeypadKeys returns every legend of a keypad with the given column count.
func KeypadKeys(columns int) []string {
	var keys []string
	for row := 0; row < 4; row++ {
		for col := 0; col < columns; col++ {
			if k, err := KeypadLabel(row, col, columns); err == nil {
				keys = append(keys, k)
			}
		}
	}
	return keys
}
