package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservableReplaysLatest(t *testing.T) {
	o := NewObservable[string]()
	o.Set("first")
	o.Set("second")

	_, ch := o.Subscribe()
	assert.Equal(t, "second", <-ch)

	o.Set("third")
	assert.Equal(t, "third", <-ch)
}

func TestObservableSubscribeBeforeValue(t *testing.T) {
	o := NewObservable[int]()
	_, ch := o.Subscribe()

	select {
	case v := <-ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}

	_, ok := o.Value()
	assert.False(t, ok)

	o.Set(7)
	assert.Equal(t, 7, <-ch)
}

func TestObservableConflatesForSlowSubscribers(t *testing.T) {
	o := NewObservable[int]()
	_, ch := o.Subscribe()

	for i := 1; i <= 10; i++ {
		o.Set(i)
	}

	assert.Equal(t, 10, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestObservableDropsStaleVersions(t *testing.T) {
	o := NewObservable[string]()

	assert.True(t, o.Publish(2, "v2"))
	assert.False(t, o.Publish(1, "v1"))
	assert.False(t, o.Publish(2, "again"))
	assert.True(t, o.Publish(5, "v5"))

	v, ok := o.Value()
	require.True(t, ok)
	assert.Equal(t, "v5", v)
}

func TestObservableUnsubscribeClosesChannel(t *testing.T) {
	o := NewObservable[int]()
	id, ch := o.Subscribe()

	o.Unsubscribe(id)
	_, open := <-ch
	assert.False(t, open)

	// Unknown and repeated ids are ignored
	o.Unsubscribe(id)
	o.Unsubscribe(uuid.New())
	o.Set(1)
}

func TestObservableClose(t *testing.T) {
	o := NewObservable[int]()
	o.Set(1)
	_, ch := o.Subscribe()
	<-ch

	o.Close()
	o.Close()
	_, open := <-ch
	assert.False(t, open)

	o.Set(2)
	v, _ := o.Value()
	assert.Equal(t, 1, v, "publishes after close are ignored")

	_, late := o.Subscribe()
	_, open = <-late
	assert.False(t, open)
}
