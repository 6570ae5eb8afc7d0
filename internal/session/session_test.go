package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Empty(t *testing.T) {
	tr := NewTracker()
	_, ok := tr.Current()
	assert.False(t, ok)
}

func TestTracker_ReplaceOnly(t *testing.T) {
	tr := NewTracker()
	tr.Set("/ws/a.md", "alpha")
	tr.Set("/ws/b.md", "beta")

	f, ok := tr.Current()
	assert.True(t, ok)
	assert.Equal(t, ActiveFile{Path: "/ws/b.md", Content: "beta"}, f)

	tr.Set("/ws/b.md", "")
	f, _ = tr.Current()
	assert.Equal(t, "", f.Content)
}

func TestTracker_ConcurrentReaders(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			tr.Set(fmt.Sprintf("/ws/%d.md", i), fmt.Sprintf("content-%d", i))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if f, ok := tr.Current(); ok {
					// Path and content always come from the same Set call.
					var n int
					fmt.Sscanf(f.Path, "/ws/%d.md", &n)
					assert.Equal(t, fmt.Sprintf("content-%d", n), f.Content)
				}
			}
		}()
	}
	wg.Wait()

	f, _ := tr.Current()
	assert.Equal(t, "/ws/199.md", f.Path)
}
