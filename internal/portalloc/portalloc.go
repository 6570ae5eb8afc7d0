// Package portalloc picks a free loopback port inside a fixed range.
package portalloc

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"time"
)

const (
	DefaultMin       = 10000
	DefaultMax       = 65535
	DefaultScanLimit = 100
	DefaultHost      = "127.0.0.1"
)

var (
	ErrNoAvailablePort = errors.New("no available port found")
	ErrInvalidRange    = errors.New("invalid port range")
)

// ProbeFunc reports whether port can currently be bound.
type ProbeFunc func(port int) bool

// Allocator scans a port range sequentially, then jumps to a random point
// after ScanLimit consecutive failures so a crowded range stays cheap.
type Allocator struct {
	ScanLimit int
	Probe     ProbeFunc
	Rand      *rand.Rand
}

// New returns an allocator probing real loopback binds on host.
func New(host string) *Allocator {
	return &Allocator{
		ScanLimit: DefaultScanLimit,
		Probe:     LoopbackProbe(host),
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LoopbackProbe binds host:port and closes it immediately.
func LoopbackProbe(host string) ProbeFunc {
	return func(port int) bool {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			return false
		}
		ln.Close()
		return true
	}
}

// Find returns the first port in [min, max] that the probe accepts.
func (a *Allocator) Find(min, max int) (int, error) {
	if min < 1 || max > 65535 || min > max {
		return 0, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, min, max)
	}

	for _, port := range a.order(min, max) {
		if a.Probe(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%w in range [%d, %d]", ErrNoAvailablePort, min, max)
}

// order lists every port in [min, max] exactly once: the first ScanLimit
// ports sequentially, then from a random jump point to max, then the ports
// the jump skipped.
func (a *Allocator) order(min, max int) []int {
	ports := make([]int, 0, max-min+1)

	limit := a.ScanLimit
	if limit <= 0 || min+limit > max {
		for p := min; p <= max; p++ {
			ports = append(ports, p)
		}
		return ports
	}

	for p := min; p < min+limit; p++ {
		ports = append(ports, p)
	}

	// Jump target is uniform over the remaining range [min+limit, max].
	rest := min + limit
	jump := rest + a.intn(max-rest+1)
	for p := jump; p <= max; p++ {
		ports = append(ports, p)
	}
	for p := rest; p < jump; p++ {
		ports = append(ports, p)
	}
	return ports
}

func (a *Allocator) intn(n int) int {
	if a.Rand == nil {
		return rand.Intn(n)
	}
	return a.Rand.Intn(n)
}
