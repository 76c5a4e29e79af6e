package usecase

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/tee_radar/pkg/engine"
	dm "github.com/iWorld-y/tee_radar/pkg/model"
)

// TrendPipeline 展示层依赖的引擎能力
type TrendPipeline interface {
	Run(ctx context.Context) (*engine.RunResult, error)
	RecentRuns(limit int) ([]dm.RunSummary, error)
	ProcessOrder(ctx context.Context, request string) (*dm.OrderResult, error)
}

// TrendUseCase 趋势分析业务逻辑
type TrendUseCase struct {
	pipeline TrendPipeline
	log      *log.Helper
}

// NewTrendUseCase 创建趋势分析业务逻辑实例
func NewTrendUseCase(pipeline TrendPipeline, logger log.Logger) *TrendUseCase {
	return &TrendUseCase{pipeline: pipeline, log: log.NewHelper(logger)}
}

// Run 执行一次完整的趋势分析流水线
func (uc *TrendUseCase) Run(ctx context.Context) (*engine.RunResult, error) {
	uc.log.Info("trend analysis triggered from web")
	return uc.pipeline.Run(ctx)
}

// History 列出最近的运行摘要
func (uc *TrendUseCase) History(ctx context.Context, limit int) ([]dm.RunSummary, error) {
	return uc.pipeline.RecentRuns(limit)
}

// Order 处理一条客户订单请求
func (uc *TrendUseCase) Order(ctx context.Context, request string) (*dm.OrderResult, error) {
	uc.log.Info("client order assistant triggered from web")
	return uc.pipeline.ProcessOrder(ctx, request)
}
