package service

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/tee_radar/app/display/internal/usecase"
)

// maxTrendsInResponse 接口只返回最靠前的几条趋势，合成阶段仍使用全部分析
const maxTrendsInResponse = 3

type DisplayService struct {
	ucTrend *usecase.TrendUseCase
	log     *log.Helper
}

func NewDisplayService(ucTrend *usecase.TrendUseCase, logger log.Logger) *DisplayService {
	return &DisplayService{
		ucTrend: ucTrend,
		log:     log.NewHelper(logger),
	}
}

// TrendDTO 接口返回的单条趋势
type TrendDTO struct {
	ImageURL string `json:"image_url"`
	Title    string `json:"title"`
	Analysis string `json:"analysis"`
}

// RunReply 趋势分析接口的成功响应
type RunReply struct {
	Trends  []TrendDTO `json:"trends"`
	Prompts []string   `json:"prompts"`
}

// ErrorReply 统一的错误响应
type ErrorReply struct {
	Error string `json:"error"`
}

// RunTrendAnalysis 处理 POST /api/run-trend-analysis
func (s *DisplayService) RunTrendAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorReply{Error: "method not allowed"})
		return
	}

	result, err := s.ucTrend.Run(r.Context())
	if err != nil {
		s.log.Errorf("trend analysis failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorReply{Error: err.Error()})
		return
	}

	trends := make([]TrendDTO, 0, maxTrendsInResponse)
	for _, t := range result.Trends {
		if len(trends) >= maxTrendsInResponse {
			break
		}
		trends = append(trends, TrendDTO{
			ImageURL: t.ImageURL,
			Title:    t.Title,
			Analysis: t.Analysis,
		})
	}

	writeJSON(w, http.StatusOK, RunReply{Trends: trends, Prompts: result.Prompts})
}

// OrderRequest 订单助手接口的请求体
type OrderRequest struct {
	Request string `json:"request"`
}

// AnalyzeOrder 处理 POST /api/analyze-order
func (s *DisplayService) AnalyzeOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorReply{Error: "method not allowed"})
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorReply{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Request) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorReply{Error: "request text is required"})
		return
	}

	result, err := s.ucTrend.Order(r.Context(), req.Request)
	if err != nil {
		s.log.Errorf("order processing failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorReply{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RunsReply 历史运行接口的响应
type RunsReply struct {
	Runs []RunSummaryDTO `json:"runs"`
}

// RunSummaryDTO 单条历史运行摘要
type RunSummaryDTO struct {
	ID          int    `json:"id"`
	CreatedAt   string `json:"created_at"`
	TrendCount  int    `json:"trend_count"`
	PromptCount int    `json:"prompt_count"`
}

// ListRuns 处理 GET /api/runs
func (s *DisplayService) ListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorReply{Error: "method not allowed"})
		return
	}

	summaries, err := s.ucTrend.History(r.Context(), 20)
	if err != nil {
		s.log.Errorf("list runs failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorReply{Error: err.Error()})
		return
	}

	runs := make([]RunSummaryDTO, 0, len(summaries))
	for _, sum := range summaries {
		runs = append(runs, RunSummaryDTO{
			ID:          sum.ID,
			CreatedAt:   sum.CreatedAt,
			TrendCount:  sum.TrendCount,
			PromptCount: sum.PromptCount,
		})
	}

	writeJSON(w, http.StatusOK, RunsReply{Runs: runs})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
