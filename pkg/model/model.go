package model

// TrendCandidate 搜索阶段产出的候选趋势图片
type TrendCandidate struct {
	Title     string
	ImageURL  string
	SourceURL string
	Snippet   string // 搜索引擎返回的摘要，用于辅助视觉分析
	Query     string // 命中的搜索词
}

// TrendAnalysis 视觉模型分析成功后的趋势条目
type TrendAnalysis struct {
	Title     string
	ImageURL  string
	SourceURL string
	Analysis  string // 多模态模型输出的风格/配色/构图描述
}

// TrendRun 一次完整流水线运行的产出
type TrendRun struct {
	ID        int
	Trends    []TrendAnalysis
	Prompts   []string
	CreatedAt string
}

// RunSummary 历史运行的列表摘要
type RunSummary struct {
	ID          int    `json:"id"`
	CreatedAt   string `json:"created_at"`
	TrendCount  int    `json:"trend_count"`
	PromptCount int    `json:"prompt_count"`
}

// OrderAnalysis 客户需求的结构化解析结果，由文本模型以 JSON 输出
type OrderAnalysis struct {
	ClientName          string   `json:"client_name"`
	BrandName           string   `json:"brand_name"`
	DesignSubject       string   `json:"design_subject"`
	Colors              []string `json:"colors"`
	StylePreferences    []string `json:"style_preferences"`
	SpecialRequirements []string `json:"special_requirements"`
	Sentiment           string   `json:"sentiment"`
}

// DesignPrompt 单条可直接用于图像生成的设计提示词
type DesignPrompt struct {
	ConceptName string `json:"concept_name"`
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	Quality     string `json:"quality"`
}

// OrderResult 一次客户订单处理的完整产出
type OrderResult struct {
	Request  string         `json:"request"`
	Analysis OrderAnalysis  `json:"analysis"`
	Concepts string         `json:"concepts"` // 编号列表形式的设计概念
	Reply    string         `json:"reply"`    // 可直接发给客户的回复
	Prompts  []DesignPrompt `json:"prompts"`
}
