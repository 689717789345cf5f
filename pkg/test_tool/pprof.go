package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"chat_platform/pkg/config"
	"chat_platform/pkg/logger"

	"go.uber.org/zap"
)

// DefaultPprofAddr pprof listen address
const DefaultPprofAddr = ":6060"

// StartPprof 非 production 環境才啟動 pprof 監控伺服器
func StartPprof(addr string) {
	if config.IsProduction() {
		logger.Log.Info("Production environment detected, pprof is disabled.")
		return
	}
	if addr == "" {
		addr = DefaultPprofAddr
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Log.Warn("pprof server failed", zap.Error(err))
		}
	}()
}

// 	•	/debug/pprof/ → 顯示所有可用的分析數據
// 	•	/debug/pprof/goroutine → 顯示所有 Goroutines
// 	•	/debug/pprof/heap → 顯示記憶體分配
// 	•	/debug/pprof/profile → 執行 30 秒 CPU 分析
//
// go tool pprof http://localhost:6060/debug/pprof/profile?seconds=30
