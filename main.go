package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"LoaDamageMeter/internal/apiserver"
	"LoaDamageMeter/internal/archive"
	"LoaDamageMeter/internal/config"
	"LoaDamageMeter/internal/dbstore"
	"LoaDamageMeter/internal/encounter"
	"LoaDamageMeter/internal/filestore"
	"LoaDamageMeter/internal/logger"
	"LoaDamageMeter/internal/loglines"
	"LoaDamageMeter/internal/meter"
	"LoaDamageMeter/internal/recents"
	"LoaDamageMeter/internal/uploader"
)

func main() {
	var (
		mode       = flag.String("mode", "serve", "运行模式: serve, info")
		configPath = flag.String("config", "", "配置文件路径(yaml)，缺省使用内置默认值")
		stdinFeed  = flag.Bool("stdin", true, "从标准输入读取战斗日志行")
	)
	flag.Parse()

	switch *mode {
	case "serve":
		runServe(*configPath, *stdinFeed)
	case "info":
		runInfo()
	default:
		fmt.Printf("未知模式: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runInfo 打印项目说明
func runInfo() {
	fmt.Println("🗡️  LoaDamageMeter - 战斗日志实时解码与伤害统计后端")
	fmt.Println("==================================================")
	fmt.Println()

	fmt.Println("📋 项目特性:")
	fmt.Println("  ✅ '|'分隔行协议解码（按feed版本映射记录类型码）")
	fmt.Println("  ✅ 有状态会话引擎：Boss判定/命中分类/过量伤害裁剪")
	fmt.Println("  ✅ 阶段转换去抖 + 区域切换重置 + 实体过期清理")
	fmt.Println("  ✅ WebSocket快照广播 + HTTP指令入口")
	fmt.Println("  ✅ 遭遇战归档（文件/PostgreSQL）与远端上传重试")
	fmt.Println()

	fmt.Println("🔧 快速开始:")
	fmt.Println("  # 启动后端，日志行从stdin灌入")
	fmt.Println("  tail -F LostArk.log | go run main.go -mode=serve")
	fmt.Println()
	fmt.Println("  # 带配置文件启动")
	fmt.Println("  go run main.go -mode=serve -config=meter.yaml")
	fmt.Println()
	fmt.Println("  # 合成遭遇战演示")
	fmt.Println("  go run ./cmd/meter-demo")
}

// runServe 启动完整后端：配置→引擎→归档→对外服务→feed
func runServe(configPath string, stdinFeed bool) {
	var log zerolog.Logger
	mgr := config.NewManager(
		config.WithConfigPath(configPath),
		config.WithOnChange(func(c *config.MeterConfig) {
			log.Info().Str("level", c.Logging.Level).Msg("configuration reloaded")
		}),
	)
	cfg, err := mgr.Load()
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log = logger.New("main", cfg.Logging.Level)
	mgr.Watch()

	// 归档协作方：文件存储必选，数据库与上传可选
	files, err := filestore.New(cfg.Storage.EncounterDir, cfg.Storage.Compress, logger.New("filestore", cfg.Logging.Level))
	if err != nil {
		log.Fatal().Err(err).Msg("init encounter storage failed")
	}

	var db *dbstore.Store
	if cfg.Storage.DatabaseDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		db, err = dbstore.Connect(ctx, cfg.Storage.DatabaseDSN, logger.New("dbstore", cfg.Logging.Level))
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, file archive only")
			db = nil
		} else {
			defer db.Close()
		}
	}

	var up *uploader.Client
	if cfg.Upload.Enabled {
		up = uploader.New(cfg.Upload.URL, cfg.Upload.Key, cfg.Upload.Timeout, cfg.Upload.MaxRetry,
			logger.New("uploader", cfg.Logging.Level))
	}

	sink := archive.New(files, db, up, logger.New("archive", cfg.Logging.Level))

	engine := meter.New(engineConfig(cfg), logger.New("meter", cfg.Logging.Level), sink)
	engine.Start()
	defer engine.Stop()

	// 最近遭遇战扫描服务与引擎共用一个事件总线
	rec := recents.New(files, engine.Events(), cfg.Storage.MaxRecents, cfg.Storage.RecentsScan,
		logger.New("recents", cfg.Logging.Level))
	engine.Events().On(meter.EventSessionBroadcast, func(_ meter.Event, payload interface{}) {
		if s, ok := payload.(*encounter.SimpleSession); ok {
			rec.SetCurrentLive(s)
		}
	})
	rec.Start()
	defer rec.Stop()

	server := apiserver.New(&apiserver.Config{
		Addr:              cfg.Server.Addr,
		ReadBufferSize:    cfg.Server.ReadBufferSize,
		WriteBufferSize:   cfg.Server.WriteBufferSize,
		EnableCompression: cfg.Server.EnableCompression,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}, logger.New("apiserver", cfg.Logging.Level), engine, files)
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("start api server failed")
	}

	log.Info().
		Str("addr", cfg.Server.Addr).
		Str("protocol", cfg.Feed.ProtocolVersion).
		Msg("damage meter backend started")

	if stdinFeed {
		go feedFromReader(engine, os.Stdin, log)
	}
	if cfg.Feed.ListenAddr != "" {
		go feedFromTCP(engine, cfg.Feed.ListenAddr, log)
	}

	// 优雅关闭
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("api server shutdown error")
	}
}

// engineConfig 把外部配置映射到引擎行为配置
func engineConfig(cfg *config.MeterConfig) *meter.Config {
	ec := meter.DefaultConfig()
	ec.ResetOnZoneChange = cfg.Meter.ResetOnZoneChange
	ec.RemoveOverkillDamage = cfg.Meter.RemoveOverkillDamage
	ec.PauseOnPhaseTransition = cfg.Meter.PauseOnPhaseTransition
	ec.UploadLogs = cfg.Upload.Enabled
	ec.BroadcastInterval = cfg.Meter.BroadcastInterval
	ec.PhaseDebounce = cfg.Meter.PhaseDebounce
	ec.ResetDelay = cfg.Meter.ResetDelay
	ec.PlayerTimeout = cfg.Meter.PlayerTimeout
	ec.BossTimeout = cfg.Meter.BossTimeout
	ec.DefaultTimeout = cfg.Meter.DefaultTimeout

	codes := loglines.DefaultKindCodes(cfg.Feed.ProtocolVersion)
	for name, code := range cfg.Feed.KindCodes {
		codes[loglines.Kind(name)] = code
	}
	ec.Format = loglines.NewLineFormat(cfg.Feed.ProtocolVersion, codes)
	return ec
}

// feedFromReader 逐行读入战斗日志并灌给引擎
func feedFromReader(engine *meter.Engine, r io.Reader, log zerolog.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		engine.Parse(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("log feed read error")
	}
}

// feedFromTCP 监听TCP端口接收日志行，每个连接一个读循环
func feedFromTCP(engine *meter.Engine, addr string, log zerolog.Logger) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("feed listener failed")
		return
	}
	log.Info().Str("addr", addr).Msg("feed listener started")
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			defer c.Close()
			feedFromReader(engine, c, log)
		}(conn)
	}
}
