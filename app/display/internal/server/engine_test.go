package server

import (
	"strings"
	"testing"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/tee_radar/app/display/internal/conf"
)

func TestNewTrendEngineMissingLlmSection(t *testing.T) {
	_, _, err := NewTrendEngine(&conf.Agent{}, log.DefaultLogger)
	if err == nil {
		t.Fatal("NewTrendEngine() = nil error for config without llm section")
	}
	if !strings.Contains(err.Error(), "llm") {
		t.Errorf("error %q does not name the missing section", err)
	}
}

func TestNewTrendEngineNilAgent(t *testing.T) {
	if _, _, err := NewTrendEngine(nil, log.DefaultLogger); err == nil {
		t.Fatal("NewTrendEngine() = nil error for nil agent config")
	}
}

func TestNewTrendEngineValidationWithSparseConfig(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	// 只有 llm 段，log/concurrency/search 全部缺省也不应崩溃
	c := &conf.Agent{Llm: &conf.LLM{Model: "m", VisionModel: "v"}}
	_, _, err := NewTrendEngine(c, log.DefaultLogger)
	if err == nil {
		t.Fatal("NewTrendEngine() = nil error for config without api key")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error %q is not the api key validation error", err)
	}
}
