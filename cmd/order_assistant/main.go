package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/iWorld-y/tee_radar/pkg/config"
	"github.com/iWorld-y/tee_radar/pkg/engine"
	"github.com/iWorld-y/tee_radar/pkg/logger"
	dm "github.com/iWorld-y/tee_radar/pkg/model"
)

func main() {
	confPath := flag.String("conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
	request := flag.String("request", "", "client request text")
	flag.Parse()

	// 也允许把需求作为位置参数传入
	if *request == "" && flag.NArg() > 0 {
		*request = strings.Join(flag.Args(), " ")
	}
	if strings.TrimSpace(*request) == "" {
		log.Fatal("用法: order_assistant -request \"客户需求文本\"")
	}

	// 1. 加载并校验配置
	cfg, err := config.LoadConfig(*confPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动 TeeRadar 订单助手...")

	// 3. 初始化核心引擎，订单处理不使用运行历史存储
	eng, err := engine.NewEngine(cfg, nil)
	if err != nil {
		logger.Log.Fatalf("引擎初始化失败: %v", err)
	}

	// 4. 处理订单并输出完整报告
	result, err := eng.ProcessOrder(context.Background(), *request)
	if err != nil {
		logger.Log.Fatalf("订单处理失败: %v", err)
	}

	printReport(result)
}

// printReport 打印可人工复制使用的完整报告
func printReport(r *dm.OrderResult) {
	line := strings.Repeat("=", 60)

	fmt.Printf("\n%s\n🎯 CLIENT ORDER ANALYSIS\n%s\n", line, line)
	fmt.Printf("Request: %q\n", r.Request)
	fmt.Printf("Client: %s\nBrand: %s\nSubject: %s\n", r.Analysis.ClientName, r.Analysis.BrandName, r.Analysis.DesignSubject)
	fmt.Printf("Colors: %s\nStyle: %s\nRequirements: %s\n",
		strings.Join(r.Analysis.Colors, ", "),
		strings.Join(r.Analysis.StylePreferences, ", "),
		strings.Join(r.Analysis.SpecialRequirements, ", "))

	fmt.Printf("\n%s\n🎨 DESIGN CONCEPTS\n%s\n%s\n", line, line, r.Concepts)

	fmt.Printf("\n%s\n💬 READY-TO-SEND RESPONSE\n%s\n%s\n", line, line, r.Reply)

	fmt.Printf("\n%s\n⚡ IMAGE GENERATION PROMPTS\n%s\n", line, line)
	for i, p := range r.Prompts {
		fmt.Printf("\n%d. %s (model: %s, quality: %s)\n   %s\n", i+1, p.ConceptName, p.Model, p.Quality, p.Prompt)
	}

	fmt.Printf("\n%s\n📱 NEXT STEPS\n%s\n", line, line)
	fmt.Println("1. Review and send the response to your client yourself.")
	fmt.Println("2. Paste the prompts into the web studio to generate design drafts.")
	fmt.Println("3. Review every generated design before sharing it.")
}
