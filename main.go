package main

import (
	"agent-datahub/api"
	_ "agent-datahub/docs"
	"agent-datahub/logger"
	"agent-datahub/service"
	"agent-datahub/service/config"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title 代理数据同步服务 API
// @version 1.0
// @description 将上游代理平台的会员、注单、资金与报表数据同步到本地数据库
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.InitLogger(cfg.LogLevel)
	service.Init(cfg)

	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if cfg.Server.BaseContext != "" {
		mux.Route(cfg.Server.BaseContext, func(r chi.Router) {
			api.InitRoute(r, cfg.Server.APIKeyHash)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux, cfg.Server.APIKeyHash)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+cfg.Server.Port, mux)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		log.Println("收到退出信号，正在关闭服务...")
		if err := s.GracefulStop(); err != nil {
			log.Printf("关闭HTTP服务失败: %v", err)
		}
	}()

	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("error: %v", err)
	}
	service.Shutdown()
}
