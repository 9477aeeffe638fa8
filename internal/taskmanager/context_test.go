package taskmanager

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharedContext_SetAndGet(t *testing.T) {
	sc := NewSharedContext()
	sc.Set("artifact", "bin/app")
	sc.Set("build_number", 42)

	val, ok := sc.Get("artifact")
	assert.True(t, ok)
	assert.Equal(t, "bin/app", val)

	_, ok = sc.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, "bin/app", sc.GetString("artifact"))
	assert.Empty(t, sc.GetString("build_number"), "non-string values read as empty")
	assert.Empty(t, sc.GetString("missing"))
}

func TestSharedContext_ConcurrentAccess(t *testing.T) {
	sc := NewSharedContext()
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			sc.Set(fmt.Sprintf("task_%d", id), id)
		}(i)
		go func(id int) {
			defer wg.Done()
			sc.Get(fmt.Sprintf("task_%d", id))
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		val, ok := sc.Get(fmt.Sprintf("task_%d", i))
		assert.True(t, ok)
		assert.Equal(t, i, val)
	}
}
