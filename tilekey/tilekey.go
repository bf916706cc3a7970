// Package tilekey addresses tiles with Z-order (Morton) keys. Tiles that are
// close on the ground get numerically close keys within a level, which keeps
// range scans over a tile cache local.
package tilekey

import (
	"fmt"
	"math"
	"strconv"
)

// Key identifies one tile: the grid level plus the Morton interleave of its
// column and row.
type Key struct {
	Level int
	Z     uint
}

var (
	interleaveMasks = [...]uint{
		0b0101010101010101010101010101010101010101010101010101010101010101,
		0b0011001100110011001100110011001100110011001100110011001100110011,
		0b0000111100001111000011110000111100001111000011110000111100001111,
		0b0000000011111111000000001111111100000000111111110000000011111111,
		0b0000000000000000111111111111111100000000000000001111111111111111,
		0b0000000000000000000000000000000011111111111111111111111111111111,
	}
	interleaveShifts = [...]uint{0, 1, 2, 4, 8, 16}
)

// Encode builds the key for a tile address. ok is false when col or row does
// not fit in 32 bits, since both halves share one uint.
func Encode(level int, col, row uint) (key Key, ok bool) {
	if col > math.MaxUint32 || row > math.MaxUint32 {
		return Key{}, false
	}
	for i := 4; i >= 0; i-- {
		col = (col | (col << interleaveShifts[i+1])) & interleaveMasks[i]
		row = (row | (row << interleaveShifts[i+1])) & interleaveMasks[i]
	}
	return Key{Level: level, Z: col | (row << 1)}, true
}

// MustEncode is Encode for addresses already known to be in range.
func MustEncode(level int, col, row uint) Key {
	key, ok := Encode(level, col, row)
	if !ok {
		panic(fmt.Errorf("tile %v/%v does not fit a z-order key", col, row))
	}
	return key
}

// ColRow recovers the tile address from the key.
func (k Key) ColRow() (col, row uint) {
	col = k.Z
	row = k.Z >> 1
	for i := 0; i <= 5; i++ {
		col = (col | (col >> interleaveShifts[i])) & interleaveMasks[i]
		row = (row | (row >> interleaveShifts[i])) & interleaveMasks[i]
	}
	return col, row
}

// String renders the key as a cache path segment, "level/z".
func (k Key) String() string {
	return strconv.Itoa(k.Level) + "/" + strconv.FormatUint(uint64(k.Z), 10)
}
