package main

import (
	"context"
	"flag"
	"log"

	"github.com/iWorld-y/tee_radar/internal/storage"
	"github.com/iWorld-y/tee_radar/pkg/config"
	"github.com/iWorld-y/tee_radar/pkg/engine"
	"github.com/iWorld-y/tee_radar/pkg/logger"
)

func main() {
	confPath := flag.String("conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
	flag.Parse()

	// 1. 加载并校验配置
	cfg, err := config.LoadConfig(*confPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动 TeeRadar 趋势代理...")

	ctx := context.Background()

	// 3. 初始化数据库连接（可选）
	var store *storage.Storage
	if cfg.DB.Host != "" {
		s, err := storage.NewStorage(cfg.DB)
		if err != nil {
			logger.Log.Errorf("无法连接数据库: %v. 本次运行不保存历史。", err)
		} else {
			store = s
			defer store.Close()
			logger.Log.Info("已成功连接到数据库")
		}
	} else {
		logger.Log.Info("未配置数据库信息，跳过数据库连接")
	}

	// 4. 初始化核心引擎
	eng, err := engine.NewEngine(cfg, store)
	if err != nil {
		logger.Log.Fatalf("引擎初始化失败: %v", err)
	}

	// 5. 执行一次完整流水线；周期调度由外部（如 GitHub Actions cron）负责
	result, err := eng.Run(ctx)
	if err != nil {
		logger.Log.Fatalf("流水线执行失败: %v", err)
	}

	logger.Log.Infof("✅ 本次运行产出 %d 条趋势分析、%d 条提示词", len(result.Trends), len(result.Prompts))
}
