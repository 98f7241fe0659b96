package labels

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is returned when a model index has no label.
	ErrIndexOutOfRange = errors.New("label index out of range")
	// ErrNoScores is returned when ArgMax receives an empty score vector.
	ErrNoScores = errors.New("empty score vector")
)

// Len returns the number of labels in the table.
func Len() int {
	return len(table)
}

// All returns a copy of the label table.
func All() []string {
	out := make([]string, len(table))
	copy(out, table[:])
	return out
}

// Lookup maps a model output index to its label.
func Lookup(index int) (string, error) {
	if index < 0 || index >= len(table) {
		return "", fmt.Errorf("%w: %d (table has %d labels)", ErrIndexOutOfRange, index, len(table))
	}
	return table[index], nil
}

// ArgMax returns the index of the largest score. Ties resolve to the lowest index.
func ArgMax(scores []float32) (int, error) {
	if len(scores) == 0 {
		return 0, ErrNoScores
	}
	maxIdx := 0
	maxVal := scores[0]
	for i, val := range scores[1:] {
		if val > maxVal {
			maxVal = val
			maxIdx = i + 1
		}
	}
	return maxIdx, nil
}

// CheckWidth verifies that a model producing width scores can be decoded with the table.
func CheckWidth(width int) error {
	if width != len(table) {
		return fmt.Errorf("model output width %d does not match label table length %d", width, len(table))
	}
	return nil
}
