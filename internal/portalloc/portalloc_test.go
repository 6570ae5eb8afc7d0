package portalloc

import (
	"math/rand"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAllocator(limit int, seed int64, probe ProbeFunc) *Allocator {
	return &Allocator{
		ScanLimit: limit,
		Probe:     probe,
		Rand:      rand.New(rand.NewSource(seed)),
	}
}

func TestFind_FirstFree(t *testing.T) {
	a := fakeAllocator(100, 1, func(port int) bool { return port >= 10003 })

	port, err := a.Find(10000, 10100)
	require.NoError(t, err)
	assert.Equal(t, 10003, port)
}

func TestFind_JumpsAfterScanLimit(t *testing.T) {
	var probed []int
	a := fakeAllocator(10, 7, func(port int) bool {
		probed = append(probed, port)
		return len(probed) == 11
	})

	port, err := a.Find(1000, 2000)
	require.NoError(t, err)
	require.Len(t, probed, 11)

	for i := 0; i < 10; i++ {
		assert.Equal(t, 1000+i, probed[i])
	}
	assert.GreaterOrEqual(t, port, 1010)
	assert.LessOrEqual(t, port, 2000)
}

func TestFind_Exhausted(t *testing.T) {
	seen := make(map[int]int)
	a := fakeAllocator(5, 3, func(port int) bool {
		seen[port]++
		return false
	})

	_, err := a.Find(500, 540)
	assert.ErrorIs(t, err, ErrNoAvailablePort)

	// Every port probed exactly once, nothing outside the range.
	assert.Len(t, seen, 41)
	for port, n := range seen {
		assert.Equal(t, 1, n, "port %d", port)
		assert.True(t, port >= 500 && port <= 540, "port %d out of range", port)
	}
}

func TestFind_NeverOutsideRange(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		a := fakeAllocator(3, seed, func(port int) bool { return port%7 == 0 })
		port, err := a.Find(20, 40)
		require.NoError(t, err)
		assert.True(t, port >= 20 && port <= 40, "seed %d: port %d", seed, port)
	}
}

func TestFind_RangeSmallerThanScanLimit(t *testing.T) {
	a := fakeAllocator(100, 1, func(port int) bool { return port == 9 })

	port, err := a.Find(1, 10)
	require.NoError(t, err)
	assert.Equal(t, 9, port)
}

func TestFind_InvalidRange(t *testing.T) {
	a := fakeAllocator(100, 1, func(int) bool { return true })

	for _, r := range [][2]int{{0, 10}, {10, 5}, {60000, 70000}} {
		_, err := a.Find(r[0], r[1])
		assert.ErrorIs(t, err, ErrInvalidRange, "range %v", r)
	}
}

func TestFind_LoopbackBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port

	a := New(DefaultHost)
	_, err = a.Find(busy, busy)
	assert.ErrorIs(t, err, ErrNoAvailablePort)
}

func TestLoopbackProbe_FreePort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	assert.True(t, LoopbackProbe(DefaultHost)(port))
}
