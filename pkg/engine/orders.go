package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/tee_radar/pkg/logger"
	dm "github.com/iWorld-y/tee_radar/pkg/model"
)

// ConceptCount 每个订单固定产出的设计概念数量
const ConceptCount = 3

// 订单处理阶段的错误类别
var (
	ErrEmptyOrder = errors.New("client request is empty")
	ErrOrder      = errors.New("order processing failed")
)

// ProcessOrder 处理一条客户订单：
// 需求解析 -> 设计概念 -> 客户回复 -> 图像生成提示词 -> 通知
// 所有产出仅供人工审阅后使用，不会自动回复客户
func (e *Engine) ProcessOrder(ctx context.Context, request string) (*dm.OrderResult, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, ErrEmptyOrder
	}

	start := time.Now()
	logger.Log.Info("开始处理客户订单")

	analysis, err := e.analyzeOrderRequest(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%w: 需求解析失败: %v", ErrOrder, err)
	}
	logger.Log.Infof("需求解析完成: %s / %s", analysis.BrandName, analysis.DesignSubject)

	concepts, err := e.generateText(ctx, []*schema.Message{
		{Role: schema.User, Content: conceptPrompt(analysis)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: 设计概念生成失败: %v", ErrOrder, err)
	}
	logger.Log.Info("设计概念生成完成")

	reply, err := e.generateText(ctx, []*schema.Message{
		{Role: schema.User, Content: replyPrompt(analysis, concepts)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: 客户回复生成失败: %v", ErrOrder, err)
	}
	logger.Log.Info("客户回复生成完成")

	prompts, err := e.generateDesignPrompts(ctx, concepts)
	if err != nil {
		return nil, fmt.Errorf("%w: 提示词生成失败: %v", ErrOrder, err)
	}
	logger.Log.Infof("提示词生成完成，共 %d 条", len(prompts))

	// 通知失败只记录日志，结果照常返回
	if e.cfg.Telegram.BotToken != "" {
		if err := e.notifier.SendMessage(ctx, formatOrderNotice(request, analysis)); err != nil {
			logger.Log.Errorf("Telegram 通知发送失败: %v", err)
		}
	}

	logger.Log.Infof("订单处理完成，耗时 %.2fs", time.Since(start).Seconds())
	return &dm.OrderResult{
		Request:  request,
		Analysis: *analysis,
		Concepts: concepts,
		Reply:    reply,
		Prompts:  prompts,
	}, nil
}

// analyzeOrderRequest 让文本模型把自由文本需求解析为结构化 JSON
func (e *Engine) analyzeOrderRequest(ctx context.Context, request string) (*dm.OrderAnalysis, error) {
	content, err := e.generateText(ctx, []*schema.Message{
		{Role: schema.User, Content: orderAnalysisPrompt(request)},
	})
	if err != nil {
		return nil, err
	}

	var analysis dm.OrderAnalysis
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &analysis); err != nil {
		return nil, fmt.Errorf("解析模型 JSON 输出失败: %v", err)
	}
	if analysis.ClientName == "" {
		analysis.ClientName = "Client"
	}
	return &analysis, nil
}

// generateDesignPrompts 把设计概念转换成可直接用于图像生成的提示词
func (e *Engine) generateDesignPrompts(ctx context.Context, concepts string) ([]dm.DesignPrompt, error) {
	content, err := e.generateText(ctx, []*schema.Message{
		{Role: schema.User, Content: designPromptsPrompt(concepts)},
	})
	if err != nil {
		return nil, err
	}

	var prompts []dm.DesignPrompt
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &prompts); err != nil {
		return nil, fmt.Errorf("解析模型 JSON 输出失败: %v", err)
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("模型未返回任何提示词")
	}
	if len(prompts) > ConceptCount {
		prompts = prompts[:ConceptCount]
	}
	return prompts, nil
}

// generateText 限流调用文本模型，遇到限流错误时指数退避重试
func (e *Engine) generateText(ctx context.Context, messages []*schema.Message) (string, error) {
	maxRetries := 3
	baseDelay := 2 * time.Second
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := e.chatModel.Generate(ctx, messages)
		if err != nil {
			lastErr = err
			if isRateLimited(err) && i < maxRetries {
				time.Sleep(baseDelay * time.Duration(1<<i))
				continue
			}
			return "", err
		}

		content := strings.TrimSpace(resp.Content)
		if content == "" {
			return "", fmt.Errorf("模型返回了空内容")
		}
		return content, nil
	}
	return "", lastErr
}

// orderAnalysisPrompt 需求解析请求
func orderAnalysisPrompt(request string) string {
	return fmt.Sprintf(`Analyze this client request for a t-shirt design and extract key information:

Client request: "%s"

Extract and format the response as JSON with these keys:
- "client_name": (extract if mentioned, otherwise "Client")
- "brand_name": (extract brand/business name if mentioned)
- "design_subject": (main subject/theme requested)
- "colors": (specific colors mentioned, as a string array)
- "style_preferences": (style keywords mentioned, as a string array)
- "special_requirements": (requirements like "for gym", "for coffee shop", as a string array)
- "sentiment": ("excited", "urgent", "professional" or "casual")

Keep it concise and accurate. Only include information explicitly mentioned or strongly implied. Output JSON only.`, request)
}

// conceptPrompt 设计概念生成请求
func conceptPrompt(a *dm.OrderAnalysis) string {
	return fmt.Sprintf(`You are a professional t-shirt designer responding to a client. Create %d unique design concepts based on this client analysis:

- Brand: %s
- Design Subject: %s
- Colors: %s
- Style Preferences: %s
- Special Requirements: %s
- Sentiment: %s

For each concept provide a catchy concept name, a 2-3 sentence description, a suggested palette of 2-3 colors, and 2-3 style keywords.

Format as a numbered list:
1. [Concept Name]
   Description: [description]
   Colors: [colors]
   Style: [style keywords]

Keep descriptions professional but engaging. Focus on commercial viability and print readiness.`,
		ConceptCount, a.BrandName, a.DesignSubject,
		strings.Join(a.Colors, ", "), strings.Join(a.StylePreferences, ", "),
		strings.Join(a.SpecialRequirements, ", "), a.Sentiment)
}

// replyPrompt 客户回复生成请求
func replyPrompt(a *dm.OrderAnalysis, concepts string) string {
	return fmt.Sprintf(`You are a professional freelance designer responding to a t-shirt design client. Create a warm, professional response that acknowledges their request, presents the design concepts clearly, asks specific follow-up questions to narrow down preferences, mentions a 24-48 hour delivery timeline with 2 rounds of revisions included, and ends with a clear call to action.

Client Analysis:
- Client Name: %s
- Brand: %s
- Key Requirements: %s, %s colors

Design Concepts:
%s

Keep it conversational but professional, with at most 1-2 emojis. Format as plain text ready to copy-paste into a client message.`,
		a.ClientName, a.BrandName, a.DesignSubject, strings.Join(a.Colors, ", "), concepts)
}

// designPromptsPrompt 提示词转换请求
func designPromptsPrompt(concepts string) string {
	return fmt.Sprintf(`Convert these %d design concepts into production-quality prompts for a text-to-image API. Each prompt must be highly detailed, specify the style and color palette, mention "t-shirt design" and "isolated on white background", and be optimized for commercial printing with terms like "vector style" and "clean lines".

Design Concepts:
%s

Format as a JSON array with these keys for each concept:
[
  {
    "concept_name": "Concept name",
    "prompt": "Detailed image generation prompt",
    "model": "dall-e-3 or gpt-image-1",
    "quality": "hd or high"
  }
]

Output JSON only.`, ConceptCount, concepts)
}

// formatOrderNotice 订单处理完成后的 Telegram HTML 摘要
func formatOrderNotice(request string, a *dm.OrderAnalysis) string {
	excerpt := request
	if len(excerpt) > 50 {
		excerpt = excerpt[:50] + "..."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🤖 <b>NEW CLIENT ORDER PROCESSED</b>\n⏱️ %s\n\n", time.Now().Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "📋 Request: <i>%s</i>\n", html.EscapeString(excerpt))
	fmt.Fprintf(&sb, "🏷️ Brand: <b>%s</b>\n\n", html.EscapeString(a.BrandName))
	sb.WriteString("✅ Ready-to-send reply created\n")
	fmt.Fprintf(&sb, "✅ %d design concepts generated\n", ConceptCount)
	sb.WriteString("✅ Image generation prompts ready\n")
	return sb.String()
}
