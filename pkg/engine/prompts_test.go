package engine

import (
	"strings"
	"testing"
	"time"

	dm "github.com/iWorld-y/tee_radar/pkg/model"
)

func TestExtractPrompts(t *testing.T) {
	raw := `Here are your prompts:
1. Minimalist single-line art of a cat, sleek and modern, black ink on white background, vector style.
2) Vintage-style sunset over a mountain range, distressed texture, retro orange and brown palette, screen-print ready.
3. short
not a numbered line
4. **Bold typography design with the word CREATE, letters breaking into geometric shapes, black and white.**
5. Hand-drawn botanical monstera leaf, detailed line work, sage green and white, elegant vector art.
6. Abstract cyberpunk brain with glowing neon circuits, vibrant pink blue purple, isolated on white.`

	prompts := extractPrompts(raw)
	if len(prompts) != 5 {
		t.Fatalf("extractPrompts() returned %d prompts, want 5: %v", len(prompts), prompts)
	}
	for i, p := range prompts {
		if strings.TrimSpace(p) == "" {
			t.Errorf("prompt %d is empty", i)
		}
		if strings.HasPrefix(p, "*") || strings.HasSuffix(p, "*") {
			t.Errorf("prompt %d keeps markdown emphasis: %q", i, p)
		}
	}
}

func TestExtractPromptsStripsCodeFence(t *testing.T) {
	raw := "```\n1. Minimalist geometric wolf head, clean vector lines, black and gold, isolated on white.\n```"
	prompts := extractPrompts(raw)
	if len(prompts) != 1 {
		t.Fatalf("extractPrompts() returned %d prompts, want 1", len(prompts))
	}
}

func TestExtractPromptsEmpty(t *testing.T) {
	if got := extractPrompts("no list here at all"); len(got) != 0 {
		t.Errorf("extractPrompts() = %v, want empty", got)
	}
}

func TestSearchQueriesIncludeCurrentMonth(t *testing.T) {
	now := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	queries := searchQueries(now)
	if len(queries) != 4 {
		t.Fatalf("searchQueries() returned %d queries, want 4", len(queries))
	}
	if !strings.Contains(queries[0], "March 2026") {
		t.Errorf("first query %q does not carry current month", queries[0])
	}
}

func TestSynthesisPromptMentionsCount(t *testing.T) {
	analyses := []dm.TrendAnalysis{{Title: "Retro tee", Analysis: "vintage sunset motif"}}
	prompt := synthesisPrompt(analyses)
	if !strings.Contains(prompt, "Retro tee") || !strings.Contains(prompt, "vintage sunset motif") {
		t.Errorf("synthesis prompt missing analysis content")
	}
	if !strings.Contains(prompt, "exactly 5") {
		t.Errorf("synthesis prompt does not pin the prompt count")
	}
}

func TestFormatReport(t *testing.T) {
	analyses := []dm.TrendAnalysis{
		{Title: "A & B tees", Analysis: "minimalist <line art>"},
		{Title: "second", Analysis: "s2"},
		{Title: "third", Analysis: "s3"},
		{Title: "fourth", Analysis: "s4"},
	}
	prompts := []string{"p1 prompt", "p2 prompt"}

	report := formatReport(analyses, prompts)

	// HTML 特殊字符必须被转义
	if strings.Contains(report, "<line art>") {
		t.Errorf("report contains unescaped analysis text")
	}
	if !strings.Contains(report, "A &amp; B tees") {
		t.Errorf("report missing escaped title")
	}
	// 报告只展示前 3 条趋势
	if strings.Contains(report, "fourth") {
		t.Errorf("report should contain at most 3 trends")
	}
	if !strings.Contains(report, "<code>p1 prompt</code>") {
		t.Errorf("report missing prompt as code block")
	}
}
