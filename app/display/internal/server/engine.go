package server

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/tee_radar/app/display/internal/conf"
	"github.com/iWorld-y/tee_radar/internal/storage"
	"github.com/iWorld-y/tee_radar/pkg/config"
	"github.com/iWorld-y/tee_radar/pkg/engine"
	trLogger "github.com/iWorld-y/tee_radar/pkg/logger"
)

// NewTrendEngine 初始化 tee_radar 核心引擎
func NewTrendEngine(c *conf.Agent, logger log.Logger) (*engine.Engine, func(), error) {
	helper := log.NewHelper(logger)

	// 缺少必需配置段时直接报错而不是空指针崩溃
	if c == nil || c.Llm == nil {
		return nil, nil, fmt.Errorf("配置错误: 缺少 agent.llm 配置段")
	}

	// 将 internal/conf.Agent 转换为 pkg/config.Config
	cfg := &config.Config{
		LLM: config.LLMConfig{
			BaseURL:     c.Llm.BaseUrl,
			APIKey:      c.Llm.ApiKey,
			Model:       c.Llm.Model,
			VisionModel: c.Llm.VisionModel,
		},
	}
	if c.Log != nil {
		cfg.Log = config.LogConfig{
			Level: c.Log.Level,
			File:  c.Log.File,
		}
	}
	if c.Concurrency != nil {
		cfg.Concurrency = config.ConcurrencyConfig{
			QPS: int(c.Concurrency.Qps),
			RPM: int(c.Concurrency.Rpm),
		}
	}
	if c.Search != nil {
		cfg.Search.Provider = c.Search.Provider
		if c.Search.Tavily != nil {
			cfg.Search.Tavily.APIKey = c.Search.Tavily.ApiKey
		}
		if c.Search.Searxng != nil {
			cfg.Search.SearXNG.BaseURL = c.Search.Searxng.BaseUrl
			cfg.Search.SearXNG.Timeout = int(c.Search.Searxng.Timeout)
		}
	}
	if c.Telegram != nil {
		cfg.Telegram.BotToken = c.Telegram.BotToken
		cfg.Telegram.ChatID = c.Telegram.ChatId
	}
	if c.Db != nil {
		cfg.DB = config.DBConfig{
			Host:     c.Db.Host,
			Port:     int(c.Db.Port),
			User:     c.Db.User,
			Password: c.Db.Password,
			Name:     c.Db.Name,
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	// 初始化引擎内部使用的日志
	if err := trLogger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		helper.Errorf("Failed to init tee_radar logger: %v", err)
		_ = trLogger.InitLogger("info", "") // 降级处理
	}

	// 初始化存储层（可选）
	var store *storage.Storage
	if cfg.DB.Host != "" {
		s, err := storage.NewStorage(cfg.DB)
		if err != nil {
			helper.Errorf("Failed to init storage, run history disabled: %v", err)
		} else {
			store = s
		}
	}

	eng, err := engine.NewEngine(cfg, store)
	if err != nil {
		helper.Errorf("Failed to init engine: %v", err)
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if store != nil {
			store.Close()
		}
		helper.Info("Cleaning up trend engine")
	}

	return eng, cleanup, nil
}
