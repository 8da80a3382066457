package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"o2oprofit/internal/config"
	"o2oprofit/internal/logger"
	"o2oprofit/internal/server"
)

var (
	port     = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode  = flag.Bool("dev", false, "开发模式")
	dataDir  = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
	logLevel = flag.String("log", "", "日志级别 debug/info/warn/error (覆盖配置文件)")
	initConf = flag.Bool("initConfig", false, "将当前生效配置写入 config.toml 后退出")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  O2O 订单利润核算")
	fmt.Println("==========================================")

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
		cfg.Log.Development = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	if *initConf {
		if info.Path == "" {
			log.Fatalf("无法确定配置文件路径")
		}
		if err := config.SaveToFile(cfg, info.Path); err != nil {
			log.Fatalf("写入配置失败: %v", err)
		}
		fmt.Printf("配置已写入: %s\n", info.Path)
		return
	}

	zl, err := logger.Init(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// 口径配置非法时直接退出，不带着错误配置提供服务
	if _, err := cfg.Calculation.EngineConfig(); err != nil {
		zl.Fatal("invalid calculation config", zap.String("path", info.Path), zap.Error(err))
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		zl.Fatal("server init failed", zap.Error(err))
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		zl.Info("server listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("config", info.Path),
			zap.Bool("config_found", info.FileFound),
			zap.String("fee_mode", cfg.Calculation.FeeMode),
			zap.String("marketing_schema", cfg.Calculation.MarketingSchema),
		)
		if err := srv.Run(addr); err != nil {
			zl.Fatal("server stopped", zap.Error(err))
		}
	}()

	fmt.Printf("服务地址: http://localhost:%d/api/status\n", cfg.Server.Port)
	fmt.Println("\n按 Ctrl+C 停止服务...")

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n正在关闭服务...")
	if err := srv.Close(); err != nil {
		zl.Warn("close store failed", zap.Error(err))
	}
}
