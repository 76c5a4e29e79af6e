package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/tee_radar/internal/storage"
	"github.com/iWorld-y/tee_radar/pkg/config"
	"github.com/iWorld-y/tee_radar/pkg/logger"
	dm "github.com/iWorld-y/tee_radar/pkg/model"
	"github.com/iWorld-y/tee_radar/pkg/search"
	"github.com/iWorld-y/tee_radar/pkg/search/factory"
	"github.com/iWorld-y/tee_radar/pkg/telegram"
)

const (
	// PromptCount 每次运行固定产出的提示词数量
	PromptCount = 5
	// maxCandidates 单次运行最多分析的候选图片数
	maxCandidates = 12
	// perQueryResults 每个搜索词请求的图片数
	perQueryResults = 5
)

// 流水线各阶段的错误类别
var (
	ErrSearch     = errors.New("trend search failed")
	ErrNoAnalyses = errors.New("no candidates survived vision analysis")
	ErrSynthesis  = errors.New("prompt synthesis failed")
)

// chatGenerator 收窄 eino ChatModel 的接口，便于测试替换
type chatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// Engine 核心处理引擎：搜索 -> 视觉分析 -> 提示词合成 -> 通知
type Engine struct {
	cfg         *config.Config
	store       *storage.Storage
	chatModel   chatGenerator // 文本模型
	visionModel chatGenerator // 多模态模型
	searcher    search.Searcher
	notifier    *telegram.Client
	limiter     *rate.Limiter
}

// NewEngine 创建引擎实例
func NewEngine(cfg *config.Config, store *storage.Storage) (*Engine, error) {
	ctx := context.Background()

	// 初始化 LLM，文本与多模态各一个实例
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	visionModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.VisionModel,
	})
	if err != nil {
		return nil, fmt.Errorf("视觉模型初始化失败: %w", err)
	}

	// 初始化限流器；RPM 未配置时不限流而不是永久阻塞
	limit := rate.Limit(float64(cfg.Concurrency.RPM) / 60.0)
	if cfg.Concurrency.RPM <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Concurrency.QPS
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	// 初始化搜索客户端
	searcher, err := factory.NewSearcher(cfg)
	if err != nil {
		return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}

	return &Engine{
		cfg:         cfg,
		store:       store,
		chatModel:   chatModel,
		visionModel: visionModel,
		searcher:    searcher,
		notifier:    telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID),
		limiter:     limiter,
	}, nil
}

// RunResult 一次流水线运行的结果
type RunResult struct {
	Trends  []dm.TrendAnalysis
	Prompts []string
}

// Run 执行一次完整的趋势分析流水线
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	logger.Log.Info("开始趋势分析流水线")

	candidates, err := e.CollectCandidates(ctx)
	if err != nil {
		return nil, err
	}
	logger.Log.Infof("搜索完成，共 %d 个候选趋势图片", len(candidates))

	analyses := e.AnalyzeCandidates(ctx, candidates)
	if len(analyses) == 0 {
		return nil, fmt.Errorf("%w: %d 个候选全部分析失败", ErrNoAnalyses, len(candidates))
	}
	logger.Log.Infof("视觉分析完成: %d/%d 成功", len(analyses), len(candidates))

	prompts, err := e.SynthesizePrompts(ctx, analyses)
	if err != nil {
		return nil, err
	}
	logger.Log.Infof("提示词合成完成，共 %d 条", len(prompts))

	// 持久化是可选的，失败不影响本次结果
	if e.store != nil {
		if _, err := e.store.SaveRun(analyses, prompts); err != nil {
			logger.Log.Errorf("保存运行记录失败: %v", err)
		}
	}

	// 通知失败只记录日志，结果照常返回
	if e.cfg.Telegram.BotToken != "" {
		if err := e.notifier.SendMessage(ctx, formatReport(analyses, prompts)); err != nil {
			logger.Log.Errorf("Telegram 通知发送失败: %v", err)
		} else {
			logger.Log.Info("Telegram 通知已发送")
		}
	}

	logger.Log.Infof("流水线完成，耗时 %.2fs", time.Since(start).Seconds())
	return &RunResult{Trends: analyses, Prompts: prompts}, nil
}

// RecentRuns 返回最近的历史运行摘要；未启用持久化时返回空列表
func (e *Engine) RecentRuns(limit int) ([]dm.RunSummary, error) {
	if e.store == nil {
		return nil, nil
	}
	return e.store.ListRuns(limit)
}

// CollectCandidates 并发执行一组固定搜索词，汇总候选趋势图片
func (e *Engine) CollectCandidates(ctx context.Context) ([]dm.TrendCandidate, error) {
	queries := searchQueries(time.Now())

	var candidates []dm.TrendCandidate
	var lastErr error
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, query := range queries {
		wg.Add(1)
		go func(query string) {
			defer wg.Done()

			req := &search.Request{
				Query:         query,
				MaxResults:    perQueryResults,
				IncludeImages: true,
			}

			resp, err := e.searcher.Search(ctx, req)
			if err != nil {
				logger.Log.Errorf("搜索失败 [%s]: %v", query, err)
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return
			}

			mu.Lock()
			defer mu.Unlock()
			for _, img := range resp.Images {
				if img.URL == "" {
					continue
				}
				title := img.Description
				if title == "" {
					title = "Untitled"
				}
				candidates = append(candidates, dm.TrendCandidate{
					Title:     title,
					ImageURL:  img.URL,
					SourceURL: img.SourceURL,
					Snippet:   img.Description,
					Query:     query,
				})
			}
		}(query)
	}

	wg.Wait()

	if len(candidates) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrSearch, lastErr)
		}
		return nil, fmt.Errorf("%w: 搜索未返回任何可用的图片结果", ErrSearch)
	}

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates, nil
}

// AnalyzeCandidates 并发调用多模态模型分析候选图片
// 单个候选失败只做记录并丢弃，不中断整次运行；结果保持输入顺序
func (e *Engine) AnalyzeCandidates(ctx context.Context, candidates []dm.TrendCandidate) []dm.TrendAnalysis {
	results := make([]*dm.TrendAnalysis, len(candidates))
	var wg sync.WaitGroup

	for i, candidate := range candidates {
		wg.Add(1)
		go func(i int, candidate dm.TrendCandidate) {
			defer wg.Done()

			analysis, err := e.analyzeOne(ctx, candidate)
			if err != nil {
				logger.Log.Warnf("图片分析失败 [%s]: %v", candidate.Title, err)
				return
			}
			results[i] = analysis
		}(i, candidate)
	}

	wg.Wait()

	analyses := make([]dm.TrendAnalysis, 0, len(candidates))
	for _, r := range results {
		if r != nil {
			analyses = append(analyses, *r)
		}
	}
	return analyses
}

// analyzeOne 分析单张候选图片
func (e *Engine) analyzeOne(ctx context.Context, candidate dm.TrendCandidate) (*dm.TrendAnalysis, error) {
	// 摘要太短时抓取来源页面正文，给模型更多上下文
	snippet := candidate.Snippet
	if len(snippet) < 80 && candidate.SourceURL != "" {
		if fetched, err := fetchAndCleanContent(candidate.SourceURL); err == nil && len(fetched) > len(snippet) {
			snippet = fetched
		}
	}
	if len(snippet) > 1500 {
		snippet = snippet[:1500]
	}

	text := visionInstruction
	if snippet != "" {
		text = fmt.Sprintf("%s\n\nContext from the page where this image appeared:\n%s", visionInstruction, snippet)
	}

	messages := []*schema.Message{
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: text},
				{
					Type:     schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{URL: candidate.ImageURL},
				},
			},
		},
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := e.visionModel.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return nil, fmt.Errorf("模型返回了空的分析结果")
	}

	return &dm.TrendAnalysis{
		Title:     candidate.Title,
		ImageURL:  candidate.ImageURL,
		SourceURL: candidate.SourceURL,
		Analysis:  content,
	}, nil
}

// SynthesizePrompts 基于全部分析结果生成固定数量的图像生成提示词
func (e *Engine) SynthesizePrompts(ctx context.Context, analyses []dm.TrendAnalysis) ([]string, error) {
	if len(analyses) == 0 {
		return nil, ErrNoAnalyses
	}

	userPrompt := synthesisPrompt(analyses)

	maxRetries := 3
	baseDelay := 2 * time.Second
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		messages := []*schema.Message{
			{Role: schema.System, Content: synthesisSystem},
			{Role: schema.User, Content: userPrompt},
		}

		resp, err := e.chatModel.Generate(ctx, messages)
		if err != nil {
			lastErr = err
			if isRateLimited(err) && i < maxRetries {
				time.Sleep(baseDelay * time.Duration(1<<i))
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
		}

		prompts := extractPrompts(resp.Content)
		if len(prompts) >= PromptCount {
			return prompts[:PromptCount], nil
		}

		// 模型输出不稳定，条数不足视为可重试
		lastErr = fmt.Errorf("仅解析出 %d 条可用提示词，需要 %d 条", len(prompts), PromptCount)
		if i < maxRetries {
			continue
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrSynthesis, lastErr)
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

// fetchAndCleanContent 抓取 URL 并提取核心文本
func fetchAndCleanContent(url string) (string, error) {
	article, err := readability.FromURL(url, 15*time.Second)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
