package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	c := New(Options{DefaultExpiration: time.Minute})
	defer c.Close()

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiredItemsAreHidden(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	c.SetWithExpiration("a", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestEvictsOldestWhenFull(t *testing.T) {
	c := New(Options{MaxItems: 2})
	defer c.Close()

	c.Set("a", 1)
	time.Sleep(time.Millisecond)
	c.Set("b", 2)
	time.Sleep(time.Millisecond)
	c.Set("c", 3)

	assert.Equal(t, 2, c.Count())
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c := New(Options{MaxItems: 2})
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("b", 3)

	assert.Equal(t, 2, c.Count())
	v, _ := c.Get("b")
	assert.Equal(t, 3, v)
}
