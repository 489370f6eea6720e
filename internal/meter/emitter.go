package meter

import "sync"

// Event 引擎对外发布的命名事件
// 事件名是展示层依赖的契约，保持与上游一致
type Event string

const (
	EventSessionBroadcast Event = "session-broadcast"
	EventRaidEnd          Event = "raid-end"
	EventResetSession     Event = "reset-session"
	EventPauseSession     Event = "pause-session"
	EventResumeSession    Event = "resume-session"
	EventZoneChange       Event = "zone-change"
	EventNewPC            Event = "new-pc"
	EventNewNPC           Event = "new-npc"
	EventShowBossHealth   Event = "show-boss-health"
	EventBossDamaged      Event = "boss-damaged"
	EventMessage          Event = "message"
)

// Handler 事件处理器
// 处理器在引擎的串行上下文内被调用：必须快速返回，且不得回调引擎的变更方法
type Handler func(event Event, payload interface{})

// Emitter 命名事件的注册/分发表，替代上游的EventEmitter对象
type Emitter struct {
	mu       sync.RWMutex
	handlers map[Event][]Handler
	any      []Handler
}

// NewEmitter 创建事件分发器
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[Event][]Handler),
	}
}

// On 订阅指定事件
func (em *Emitter) On(event Event, h Handler) {
	em.mu.Lock()
	em.handlers[event] = append(em.handlers[event], h)
	em.mu.Unlock()
}

// OnAny 订阅全部事件（WebSocket出口用）
func (em *Emitter) OnAny(h Handler) {
	em.mu.Lock()
	em.any = append(em.any, h)
	em.mu.Unlock()
}

// Emit 同步分发事件给全部订阅者
func (em *Emitter) Emit(event Event, payload interface{}) {
	em.mu.RLock()
	handlers := make([]Handler, 0, len(em.handlers[event])+len(em.any))
	handlers = append(handlers, em.handlers[event]...)
	handlers = append(handlers, em.any...)
	em.mu.RUnlock()

	for _, h := range handlers {
		h(event, payload)
	}
}
