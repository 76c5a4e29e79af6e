package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/tee_radar/pkg/config"
	"github.com/iWorld-y/tee_radar/pkg/logger"
	dm "github.com/iWorld-y/tee_radar/pkg/model"
	"github.com/iWorld-y/tee_radar/pkg/search"
	"github.com/iWorld-y/tee_radar/pkg/telegram"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger("error", "")
	os.Exit(m.Run())
}

// mockSearcher 模拟搜索客户端，调用计数加锁以适配并发 fan-out
type mockSearcher struct {
	fn    func(req *search.Request) (*search.Response, error)
	mu    sync.Mutex
	calls int
}

func (m *mockSearcher) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(req)
}

// mockGenerator 模拟 LLM 生成
type mockGenerator struct {
	fn    func(input []*schema.Message) (*schema.Message, error)
	mu    sync.Mutex
	calls int
}

func (m *mockGenerator) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(input)
}

func newTestEngine(searcher search.Searcher, vision, chat chatGenerator) *Engine {
	return &Engine{
		cfg:         &config.Config{},
		chatModel:   chat,
		visionModel: vision,
		searcher:    searcher,
		notifier:    telegram.NewClient("", ""),
		limiter:     rate.NewLimiter(rate.Inf, 1),
	}
}

func imageResponse(n int, prefix string) *search.Response {
	resp := &search.Response{}
	for i := 0; i < n; i++ {
		resp.Images = append(resp.Images, search.Image{
			URL:         fmt.Sprintf("https://img.example/%s-%d.jpg", prefix, i),
			Description: fmt.Sprintf("%s design %d with plenty of descriptive context around the artwork style", prefix, i),
		})
	}
	return resp
}

func TestCollectCandidates(t *testing.T) {
	searcher := &mockSearcher{fn: func(req *search.Request) (*search.Response, error) {
		if !req.IncludeImages {
			t.Errorf("search request must ask for images")
		}
		if strings.Contains(req.Query, "etsy") {
			resp := imageResponse(2, "etsy")
			resp.Images = append(resp.Images, search.Image{URL: "", Description: "no image url"})
			return resp, nil
		}
		return &search.Response{}, nil
	}}

	eng := newTestEngine(searcher, nil, nil)
	candidates, err := eng.CollectCandidates(context.Background())
	if err != nil {
		t.Fatalf("CollectCandidates() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("CollectCandidates() returned %d candidates, want 2", len(candidates))
	}
	if searcher.calls != 4 {
		t.Errorf("searcher called %d times, want 4 (one per query)", searcher.calls)
	}
	for _, c := range candidates {
		if c.ImageURL == "" || c.Title == "" || c.Query == "" {
			t.Errorf("candidate has empty fields: %+v", c)
		}
	}
}

func TestCollectCandidatesAllQueriesFail(t *testing.T) {
	searcher := &mockSearcher{fn: func(req *search.Request) (*search.Response, error) {
		return nil, fmt.Errorf("provider unreachable")
	}}

	eng := newTestEngine(searcher, nil, nil)
	_, err := eng.CollectCandidates(context.Background())
	if !errors.Is(err, ErrSearch) {
		t.Fatalf("CollectCandidates() error = %v, want ErrSearch", err)
	}
}

func TestCollectCandidatesCapped(t *testing.T) {
	searcher := &mockSearcher{fn: func(req *search.Request) (*search.Response, error) {
		return imageResponse(perQueryResults, req.Query), nil
	}}

	eng := newTestEngine(searcher, nil, nil)
	candidates, err := eng.CollectCandidates(context.Background())
	if err != nil {
		t.Fatalf("CollectCandidates() error = %v", err)
	}
	if len(candidates) != maxCandidates {
		t.Errorf("CollectCandidates() returned %d candidates, want cap %d", len(candidates), maxCandidates)
	}
}

func visionMockFailingOn(failURL string) *mockGenerator {
	return &mockGenerator{fn: func(input []*schema.Message) (*schema.Message, error) {
		if len(input) != 1 || len(input[0].MultiContent) != 2 {
			return nil, fmt.Errorf("unexpected message shape")
		}
		img := input[0].MultiContent[1].ImageURL
		if img == nil {
			return nil, fmt.Errorf("missing image part")
		}
		if img.URL == failURL {
			return nil, fmt.Errorf("model rejected image")
		}
		return &schema.Message{Role: schema.Assistant, Content: "Clean minimalist line art with a muted palette."}, nil
	}}
}

func TestAnalyzeCandidatesPartialFailure(t *testing.T) {
	candidates := []dm.TrendCandidate{
		{Title: "first", ImageURL: "https://img.example/ok-1.jpg", Snippet: strings.Repeat("ctx ", 30)},
		{Title: "second", ImageURL: "https://img.example/bad.jpg", Snippet: strings.Repeat("ctx ", 30)},
		{Title: "third", ImageURL: "https://img.example/ok-2.jpg", Snippet: strings.Repeat("ctx ", 30)},
	}

	eng := newTestEngine(nil, visionMockFailingOn("https://img.example/bad.jpg"), nil)
	analyses := eng.AnalyzeCandidates(context.Background(), candidates)

	if len(analyses) != 2 {
		t.Fatalf("AnalyzeCandidates() returned %d analyses, want 2", len(analyses))
	}
	// 失败的候选被剔除，其余保持输入顺序
	if analyses[0].Title != "first" || analyses[1].Title != "third" {
		t.Errorf("AnalyzeCandidates() order = [%s, %s], want [first, third]", analyses[0].Title, analyses[1].Title)
	}
	for _, a := range analyses {
		if a.Analysis == "" {
			t.Errorf("analysis text is empty for %s", a.Title)
		}
	}
}

func TestAnalyzeCandidatesAllFail(t *testing.T) {
	candidates := []dm.TrendCandidate{
		{Title: "only", ImageURL: "https://img.example/bad.jpg", Snippet: strings.Repeat("ctx ", 30)},
	}
	eng := newTestEngine(nil, visionMockFailingOn("https://img.example/bad.jpg"), nil)
	if analyses := eng.AnalyzeCandidates(context.Background(), candidates); len(analyses) != 0 {
		t.Errorf("AnalyzeCandidates() = %v, want empty", analyses)
	}
}

const fivePrompts = `1. Minimalist geometric wolf head, clean vector lines, black and gold color scheme, isolated on white.
2. Vintage sunset over mountains, distressed texture, retro orange and brown palette, screen-print style.
3. Abstract cyberpunk brain with glowing neon circuits, vibrant pink blue purple, black background.
4. Hand-drawn botanical monstera leaf, detailed line work, sage green and white, elegant vector art.
5. Bold typography CREATE with letters breaking into geometric shapes, black and white with one accent.`

func TestSynthesizePrompts(t *testing.T) {
	chat := &mockGenerator{fn: func(input []*schema.Message) (*schema.Message, error) {
		if len(input) != 2 || input[0].Role != schema.System {
			return nil, fmt.Errorf("unexpected message shape")
		}
		return &schema.Message{Role: schema.Assistant, Content: fivePrompts}, nil
	}}

	eng := newTestEngine(nil, nil, chat)
	analyses := []dm.TrendAnalysis{{Title: "t", Analysis: "a"}}

	prompts, err := eng.SynthesizePrompts(context.Background(), analyses)
	if err != nil {
		t.Fatalf("SynthesizePrompts() error = %v", err)
	}
	if len(prompts) != PromptCount {
		t.Fatalf("SynthesizePrompts() returned %d prompts, want %d", len(prompts), PromptCount)
	}
	for i, p := range prompts {
		if strings.TrimSpace(p) == "" {
			t.Errorf("prompt %d is empty", i)
		}
	}
}

func TestSynthesizePromptsTooFew(t *testing.T) {
	chat := &mockGenerator{fn: func(input []*schema.Message) (*schema.Message, error) {
		return &schema.Message{Role: schema.Assistant, Content: "1. Only one usable prompt line that is long enough to pass validation."}, nil
	}}

	eng := newTestEngine(nil, nil, chat)
	_, err := eng.SynthesizePrompts(context.Background(), []dm.TrendAnalysis{{Title: "t", Analysis: "a"}})
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("SynthesizePrompts() error = %v, want ErrSynthesis", err)
	}
	// 条数不足会在同一循环内重试
	if chat.calls != 4 {
		t.Errorf("chat model called %d times, want 4 (1 + 3 retries)", chat.calls)
	}
}

func TestSynthesizePromptsNoAnalyses(t *testing.T) {
	eng := newTestEngine(nil, nil, &mockGenerator{fn: func([]*schema.Message) (*schema.Message, error) {
		t.Fatal("model must not be called without analyses")
		return nil, nil
	}})
	_, err := eng.SynthesizePrompts(context.Background(), nil)
	if !errors.Is(err, ErrNoAnalyses) {
		t.Fatalf("SynthesizePrompts() error = %v, want ErrNoAnalyses", err)
	}
}

func TestRunScenario(t *testing.T) {
	// 搜索返回 3 个候选，2 个通过视觉分析，合成返回 5 条提示词
	searcher := &mockSearcher{fn: func(req *search.Request) (*search.Response, error) {
		if strings.Contains(req.Query, "etsy") {
			return &search.Response{Images: []search.Image{
				{URL: "https://img.example/a.jpg", Description: strings.Repeat("first design context ", 6)},
				{URL: "https://img.example/bad.jpg", Description: strings.Repeat("second design context ", 6)},
				{URL: "https://img.example/c.jpg", Description: strings.Repeat("third design context ", 6)},
			}}, nil
		}
		return &search.Response{}, nil
	}}
	chat := &mockGenerator{fn: func(input []*schema.Message) (*schema.Message, error) {
		return &schema.Message{Role: schema.Assistant, Content: fivePrompts}, nil
	}}

	eng := newTestEngine(searcher, visionMockFailingOn("https://img.example/bad.jpg"), chat)
	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Trends) != 2 {
		t.Errorf("Run() trends = %d, want 2", len(result.Trends))
	}
	if len(result.Prompts) != PromptCount {
		t.Errorf("Run() prompts = %d, want %d", len(result.Prompts), PromptCount)
	}
}

func TestRunFailsWhenAllAnalysesFail(t *testing.T) {
	searcher := &mockSearcher{fn: func(req *search.Request) (*search.Response, error) {
		return &search.Response{Images: []search.Image{
			{URL: "https://img.example/bad.jpg", Description: strings.Repeat("context ", 20)},
		}}, nil
	}}

	eng := newTestEngine(searcher, visionMockFailingOn("https://img.example/bad.jpg"), nil)
	_, err := eng.Run(context.Background())
	if !errors.Is(err, ErrNoAnalyses) {
		t.Fatalf("Run() error = %v, want ErrNoAnalyses", err)
	}
}
