package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestEmitterOn 指定事件订阅只收到对应事件
func TestEmitterOn(t *testing.T) {
	em := NewEmitter()

	var got []interface{}
	em.On(EventRaidEnd, func(event Event, payload interface{}) {
		got = append(got, payload)
	})

	em.Emit(EventRaidEnd, "a")
	em.Emit(EventZoneChange, "b")
	em.Emit(EventRaidEnd, "c")

	assert.Equal(t, []interface{}{"a", "c"}, got)
}

// TestEmitterOnAny 全量订阅收到所有事件及其事件名
func TestEmitterOnAny(t *testing.T) {
	em := NewEmitter()

	var events []Event
	em.OnAny(func(event Event, payload interface{}) {
		events = append(events, event)
	})

	em.Emit(EventRaidEnd, nil)
	em.Emit(EventZoneChange, nil)

	assert.Equal(t, []Event{EventRaidEnd, EventZoneChange}, events)
}

// TestEmitterMultipleHandlers 同一事件的多个处理器按注册序调用
func TestEmitterMultipleHandlers(t *testing.T) {
	em := NewEmitter()

	var order []string
	em.On(EventMessage, func(Event, interface{}) { order = append(order, "first") })
	em.On(EventMessage, func(Event, interface{}) { order = append(order, "second") })
	em.OnAny(func(Event, interface{}) { order = append(order, "any") })

	em.Emit(EventMessage, nil)
	assert.Equal(t, []string{"first", "second", "any"}, order)
}
