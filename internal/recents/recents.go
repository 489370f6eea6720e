package recents

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"LoaDamageMeter/internal/encounter"
	"LoaDamageMeter/internal/filestore"
	"LoaDamageMeter/internal/meter"
)

// EventLoadedRecents 最近遭遇战加载完成事件
const EventLoadedRecents meter.Event = "loaded-recents"

// Recents "loaded-recents"事件载荷
type Recents struct {
	CurrentLive      *encounter.SimpleSession   `json:"currentLive,omitempty"`
	RecentEncounters []*encounter.SimpleSession `json:"recentEncounters"`
}

// Service 周期扫描归档目录，向订阅者发布最近遭遇战列表
type Service struct {
	store    *filestore.Store
	emitter  *meter.Emitter
	log      zerolog.Logger
	max      int
	interval time.Duration

	mu          sync.Mutex
	currentLive *encounter.SimpleSession
	recent      []*encounter.SimpleSession
	stopCh      chan struct{}
	running     bool
}

// New 创建服务；max限定列表长度，interval为扫描周期
func New(store *filestore.Store, emitter *meter.Emitter, max int, interval time.Duration, log zerolog.Logger) *Service {
	if max <= 0 || max >= 100 {
		max = 10
	}
	if interval < time.Second {
		interval = 5 * time.Second
	}
	return &Service{
		store:    store,
		emitter:  emitter,
		log:      log,
		max:      max,
		interval: interval,
	}
}

// Start 启动周期扫描；重复调用为空操作
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.load()
			}
		}
	}()
	s.log.Info().Dur("interval", s.interval).Msg("started recent encounter service")
}

// Stop 停止周期扫描
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.log.Info().Msg("stopped recent encounter service")
}

// SetCurrentLive 更新当前实时会话快照（随列表一同发布）
func (s *Service) SetCurrentLive(live *encounter.SimpleSession) {
	s.mu.Lock()
	s.currentLive = live
	s.mu.Unlock()
}

// Recent 最近一次扫描结果
func (s *Service) Recent() []*encounter.SimpleSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent
}

// load 扫描归档并发布
func (s *Service) load() {
	recent, err := s.store.LoadRecent(s.max)
	if err != nil {
		s.log.Error().Err(err).Msg("error loading recent encounters")
		return
	}

	s.mu.Lock()
	s.recent = recent
	payload := &Recents{CurrentLive: s.currentLive, RecentEncounters: recent}
	s.mu.Unlock()

	s.emitter.Emit(EventLoadedRecents, payload)
}
