package engine

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	dm "github.com/iWorld-y/tee_radar/pkg/model"
)

// visionInstruction 视觉分析的固定指令
const visionInstruction = `Analyze this t-shirt design image. Describe the main subject, style (e.g., minimalist, vintage, abstract), color palette, composition, and overall mood. Note anything that suggests commercial appeal. Provide a concise, one-sentence summary of the design concept.`

// synthesisSystem 合成阶段的系统指令
const synthesisSystem = `You are a professional prompt engineer for AI image generators, specializing in commercially viable t-shirt designs. Output only a numbered list, no extra explanations.`

// searchQueries 固定搜索词，第一条带上当前月份保证时效性
func searchQueries(now time.Time) []string {
	return []string{
		fmt.Sprintf("trending t-shirt designs %s", now.Format("January 2006")),
		"best selling graphic tees on etsy",
		"pinterest popular t-shirt aesthetics",
		"top instagram t-shirt trends",
	}
}

// synthesisPrompt 拼装提示词合成请求
func synthesisPrompt(analyses []dm.TrendAnalysis) string {
	var sb strings.Builder
	sb.WriteString("The following is a visual trend analysis of recent t-shirt design images:\n\n")
	for _, a := range analyses {
		fmt.Fprintf(&sb, "- Image '%s': %s\n", a.Title, a.Analysis)
	}

	fmt.Fprintf(&sb, `
Based on this trend analysis, generate exactly %d production-quality prompts for a text-to-image API.

Requirements:
1. Each prompt must be unique, detailed, and directly inspired by the analysis.
2. Include critical details for t-shirt printing: style (e.g., minimalist vector, vintage screen-print), color palette, composition, and background (isolated on white is standard).
3. Optimize for commercial use: clean lines, scalable details, clear subject matter.
4. Format: a numbered list of %d prompts, one per line, nothing else.

Example of a perfect prompt:
Minimalist single-line art of a cat, sleek and modern, black ink on a white background, vector style, high detail, commercial use ready.
`, PromptCount, PromptCount)

	return sb.String()
}

var promptLinePattern = regexp.MustCompile(`^\s*\d+[.)]\s*(.+)$`)

// stripCodeFence 去掉模型输出外层的 markdown 代码块标记
func stripCodeFence(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// extractPrompts 从模型输出中解析编号列表形式的提示词
// 过短的行视为噪声丢弃
func extractPrompts(raw string) []string {
	clean := stripCodeFence(raw)

	var prompts []string
	for _, line := range strings.Split(clean, "\n") {
		m := promptLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		prompt := strings.TrimSpace(m[1])
		prompt = strings.Trim(prompt, "*_")
		if len(prompt) > 30 {
			prompts = append(prompts, prompt)
		}
	}
	return prompts
}

// formatReport 将趋势分析与提示词拼装为 Telegram HTML 报告
func formatReport(analyses []dm.TrendAnalysis, prompts []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "🤖 <b>AI T-SHIRT DESIGN AGENT REPORT</b>\n⏱️ %s\n\n", time.Now().Format("2006-01-02 15:04"))

	sb.WriteString("📊 <b>VISUAL TREND ANALYSIS</b>\n")
	topTrends := analyses
	if len(topTrends) > 3 {
		topTrends = topTrends[:3]
	}
	for _, a := range topTrends {
		fmt.Fprintf(&sb, "• <b>%s</b>: <i>%s</i>\n", html.EscapeString(a.Title), html.EscapeString(a.Analysis))
	}

	sb.WriteString("\n🎨 <b>READY-TO-USE IMAGE PROMPTS</b>\n")
	sb.WriteString("<i>Based on the latest visual trends. Copy and paste into the generator:</i>\n\n")
	for i, prompt := range prompts {
		fmt.Fprintf(&sb, "%d. <code>%s</code>\n\n", i+1, html.EscapeString(prompt))
	}

	sb.WriteString("✅ <b>NEXT STEPS</b>\n1. Copy a prompt into the web studio.\n2. Generate designs and save your favorites.\n")

	return sb.String()
}
