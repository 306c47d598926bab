package storage

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func verifyBitmap(t *testing.T, bm Bitmap, shadow []bool) {
	for i := 0; i < len(shadow); i++ {
		assert.Equal(t, shadow[i], bm.LoadBit(i), "Mismatch at bit %d", i)
	}
}

func checkFindFirstZero(t *testing.T, bm Bitmap, startIndex int, expected int) {
	actual := bm.FindFirstZero(startIndex)
	assert.Equal(t, expected, actual, "FindFirstZero mismatch starting at index %d", startIndex)
	if expected != -1 {
		assert.False(t, bm.LoadBit(actual), "FindFirstZero returned a set bit")
	}
}

func verifyFindFirstZero(t *testing.T, bm Bitmap, shadow []bool, startIndex int) int {
	expected := -1
	for i := startIndex; i < len(shadow); i++ {
		if !shadow[i] {
			expected = i
			break
		}
	}
	if expected == -1 {
		for i := 0; i < startIndex; i++ {
			if !shadow[i] {
				expected = i
				break
			}
		}
	}
	actual := bm.FindFirstZero(startIndex)
	assert.Equal(t, expected, actual, "FindFirstZero mismatch starting at index %d", startIndex)
	return actual
}

// runRandomizedBitmapTest drives the Bitmap against a []bool shadow with
// random SetBit/LoadBit/FindFirstZero traffic, with canary bytes around the
// payload to catch out-of-bounds writes.
func runRandomizedBitmapTest(t *testing.T, numBits int, seed int64) {
	r := rand.New(rand.NewSource(seed))

	canarySize := 8
	canaryPattern := byte(0xAA)
	payloadSize := (numBits + 63) / 64 * 8
	rawMemory := make([]byte, payloadSize+2*canarySize)
	for i := 0; i < canarySize; i++ {
		rawMemory[i] = canaryPattern
		rawMemory[len(rawMemory)-1-i] = canaryPattern
	}

	bitmapData := rawMemory[canarySize : canarySize+payloadSize]
	r.Read(bitmapData)

	bm := AsBitmap(bitmapData, numBits)

	shadow := make([]bool, numBits)
	for i := 0; i < len(shadow); i++ {
		shadow[i] = bm.LoadBit(i)
	}

	checkCanaries := func() {
		for i := 0; i < canarySize; i++ {
			assert.Equal(t, canaryPattern, rawMemory[i], "Memory corruption in PRE-canary at byte %d", i)
			assert.Equal(t, canaryPattern, rawMemory[len(rawMemory)-1-i], "Memory corruption in POST-canary")
		}
	}

	for i := 0; i < 50000; i++ {
		switch r.Intn(5) {
		case 0: // Set random bit
			idx := r.Intn(numBits)
			on := r.Intn(2) == 0
			prev := bm.SetBit(idx, on)
			assert.Equal(t, shadow[idx], prev, "SetBit return value mismatch at iter %d", i)
			shadow[idx] = on

		case 1: // Check LoadBit
			idx := r.Intn(numBits)
			assert.Equal(t, shadow[idx], bm.LoadBit(idx), "LoadBit mismatch at iter %d", i)

		case 2: // FindFirstZero and immediately fill it (simulated allocation)
			startHint := r.Intn(numBits)
			idx := verifyFindFirstZero(t, bm, shadow, startHint)
			if idx != -1 {
				bm.SetBit(idx, true)
				shadow[idx] = true
			}

		case 3: // Mass toggle a range
			start := r.Intn(numBits)
			length := r.Intn(20) + 1
			for j := 0; j < length && start+j < numBits; j++ {
				val := r.Intn(2) == 0
				bm.SetBit(start+j, val)
				shadow[start+j] = val
			}

		case 4:
			verifyBitmap(t, bm, shadow)
			checkCanaries()
		}
	}

	verifyBitmap(t, bm, shadow)
	checkCanaries()
}

func TestBitmapSimpleSetLoad(t *testing.T) {
	numBits := 100
	buf := make([]byte, 16)
	bm := AsBitmap(buf, numBits)
	shadow := make([]bool, numBits)

	verifyBitmap(t, bm, shadow)
	// Set bits crossing word boundaries
	for _, idx := range []int{0, 1, 63, 64, 99} {
		prev := bm.SetBit(idx, true)
		assert.Equal(t, shadow[idx], prev, "Unexpected previous value at %d", idx)
		shadow[idx] = true
	}
	verifyBitmap(t, bm, shadow)

	for _, idx := range []int{0, 2, 63, 60, 98} {
		prev := bm.SetBit(idx, false)
		assert.Equal(t, shadow[idx], prev, "Unexpected previous value at %d", idx)
		shadow[idx] = false
	}
	verifyBitmap(t, bm, shadow)

	for _, idx := range []int{1, 2, 65, 31} {
		prev := bm.SetBit(idx, true)
		assert.Equal(t, shadow[idx], prev, "Unexpected previous value at %d", idx)
		shadow[idx] = true
	}
	verifyBitmap(t, bm, shadow)
}

func TestBitmapSimpleFindFirstZero(t *testing.T) {
	numBits := 100
	buf := make([]byte, 16)
	bm := AsBitmap(buf, numBits)

	// Initially all zero
	checkFindFirstZero(t, bm, 0, 0)
	checkFindFirstZero(t, bm, 42, 42)

	for i := 0; i < 10; i++ {
		bm.SetBit(i, true)
	}
	checkFindFirstZero(t, bm, 0, 10)
	checkFindFirstZero(t, bm, 5, 10)
	checkFindFirstZero(t, bm, 10, 10)
	checkFindFirstZero(t, bm, 64, 64)

	for i := 10; i < 64; i++ {
		bm.SetBit(i, true)
	}
	checkFindFirstZero(t, bm, 31, 64)
	checkFindFirstZero(t, bm, 65, 65)

	for i := 64; i < numBits; i++ {
		bm.SetBit(i, true)
	}
	checkFindFirstZero(t, bm, 64, -1)
	checkFindFirstZero(t, bm, 99, -1)
	checkFindFirstZero(t, bm, 4, -1)

	bm.SetBit(50, false)
	checkFindFirstZero(t, bm, 0, 50)
	checkFindFirstZero(t, bm, 99, 50)
	checkFindFirstZero(t, bm, 63, 50)

	// A hole near the end (bit 98 of 0..99)
	bm.SetBit(98, false)
	checkFindFirstZero(t, bm, 16, 50)
	checkFindFirstZero(t, bm, 63, 98)
	checkFindFirstZero(t, bm, 99, 50)
}

func TestBitmapRandomizedSmall(t *testing.T) {
	runRandomizedBitmapTest(t, 43, 65830)
}

func TestBitmapRandomizedLarge(t *testing.T) {
	runRandomizedBitmapTest(t, 500, 65831)
}
