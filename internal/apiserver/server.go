package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"LoaDamageMeter/internal/filestore"
	"LoaDamageMeter/internal/meter"
)

// Config 对外服务配置
type Config struct {
	Addr              string
	ReadBufferSize    int
	WriteBufferSize   int
	EnableCompression bool
	WriteTimeout      time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig(addr string) *Config {
	return &Config{
		Addr:              addr,
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		EnableCompression: true,
		WriteTimeout:      5 * time.Second,
	}
}

// APIResponse 统一响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsFrame WebSocket下发帧：命名事件+载荷
type wsFrame struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Server 指令入口（HTTP）与快照/事件出口（WebSocket）
// 引擎发出的每个命名事件都以JSON帧推送给全部已连接客户端
type Server struct {
	cfg      *Config
	log      zerolog.Logger
	engine   *meter.Engine
	store    *filestore.Store
	router   *mux.Router
	server   *http.Server
	upgrader websocket.Upgrader

	// 连接管理（注册/注销/广播通道驱动的hub）
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan wsFrame
	stopCh     chan struct{}
	hubWg      sync.WaitGroup

	droppedFrames atomic.Int64
	isRunning     atomic.Bool
}

// New 创建服务并订阅引擎全部事件
func New(cfg *Config, log zerolog.Logger, engine *meter.Engine, store *filestore.Store) *Server {
	if cfg == nil {
		cfg = DefaultConfig(":8899")
	}

	s := &Server{
		cfg:    cfg,
		log:    log,
		engine: engine,
		store:  store,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			EnableCompression: cfg.EnableCompression,
			CheckOrigin: func(r *http.Request) bool {
				return true // 本地overlay，放行所有源
			},
		},
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan wsFrame, 256),
		stopCh:     make(chan struct{}),
	}

	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: c.Handler(s.router),
	}

	// 引擎事件→广播通道：发布端绝不阻塞引擎，队列满则丢帧计数
	engine.Events().OnAny(func(event meter.Event, payload interface{}) {
		select {
		case s.broadcast <- wsFrame{Event: string(event), Payload: payload}:
		default:
			s.droppedFrames.Add(1)
		}
	})

	return s
}

// setupRoutes 注册路由
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebSocket)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/session/previous", s.handlePrevious).Methods(http.MethodGet)
	api.HandleFunc("/session/pause", s.handlePause).Methods(http.MethodPost)
	api.HandleFunc("/session/resume", s.handleResume).Methods(http.MethodPost)
	api.HandleFunc("/session/reset", s.handleReset).Methods(http.MethodPost)
	api.HandleFunc("/encounters", s.handleEncounters).Methods(http.MethodGet)
	api.HandleFunc("/encounters/read", s.handleReadEncounter).Methods(http.MethodPost)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
}

// Start 启动服务与广播hub
func (s *Server) Start() error {
	if !s.isRunning.CompareAndSwap(false, true) {
		return fmt.Errorf("server is already running")
	}

	s.hubWg.Add(1)
	go s.runHub()

	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("api server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("api server error")
		}
	}()

	return nil
}

// Shutdown 关闭服务：停止hub并断开全部客户端
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.isRunning.CompareAndSwap(true, false) {
		return nil
	}
	close(s.stopCh)
	s.hubWg.Wait()
	return s.server.Shutdown(ctx)
}

// runHub 广播循环：注册/注销/事件分发在一个goroutine内串行处理
func (s *Server) runHub() {
	defer s.hubWg.Done()

	for {
		select {
		case <-s.stopCh:
			for client := range s.clients {
				client.Close()
				delete(s.clients, client)
			}
			return

		case client := <-s.register:
			s.clients[client] = true
			s.log.Debug().Int("clients", len(s.clients)).Msg("ws client connected")

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.Close()
				s.log.Debug().Int("clients", len(s.clients)).Msg("ws client disconnected")
			}

		case frame := <-s.broadcast:
			data, err := json.Marshal(frame)
			if err != nil {
				s.log.Error().Err(err).Str("event", frame.Event).Msg("marshal ws frame failed")
				continue
			}
			for client := range s.clients {
				client.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
				if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
					client.Close()
					delete(s.clients, client)
				}
			}
		}
	}
}

// handleWebSocket 升级连接并挂入hub；读循环只用于感知断开
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	s.register <- conn

	go func() {
		defer func() {
			select {
			case s.unregister <- conn:
			case <-s.stopCh:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp APIResponse) {
	resp.Timestamp = time.Now().UnixMilli()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "ok"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.engine.Snapshot()})
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	previous := s.engine.Previous()
	if previous == nil {
		s.writeJSON(w, http.StatusNotFound, APIResponse{Success: false, Message: "no finalized session"})
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: previous})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.log.Info().Msg("client requested session pause")
	s.engine.Pause()
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.log.Info().Msg("client requested session resume")
	s.engine.Resume()
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "resumed"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1" || r.URL.Query().Get("force") == "true"
	s.log.Info().Bool("force", force).Msg("client requested session reset")
	s.engine.Reset(force)
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "reset scheduled"})
}

func (s *Server) handleEncounters(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, APIResponse{Success: false, Message: "storage disabled"})
		return
	}
	n := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		fmt.Sscanf(raw, "%d", &n)
	}
	files, err := s.store.List(n)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, APIResponse{Success: false, Message: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: files})
}

func (s *Server) handleReadEncounter(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, APIResponse{Success: false, Message: "storage disabled"})
		return
	}

	req := struct {
		Path string `json:"path"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		s.writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "path is required"})
		return
	}

	session, err := s.store.Read(req.Path)
	if errors.Is(err, filestore.ErrOutsideDir) {
		s.writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: err.Error()})
		return
	}
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, APIResponse{Success: false, Message: err.Error()})
		return
	}
	if err := s.engine.LoadArchived(session); err != nil {
		s.writeJSON(w, http.StatusConflict, APIResponse{Success: false, Message: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "encounter loaded"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.GetStats()
	stats["dropped_frames"] = s.droppedFrames.Load()
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: stats})
}
