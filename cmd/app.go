package cmd

import (
	"context"

	"github.com/insajin/appeyes/internal/browser"
	"github.com/insajin/appeyes/internal/config"
	"github.com/insajin/appeyes/internal/keywords"
	"github.com/insajin/appeyes/internal/metrics"
	"github.com/rs/zerolog"
)

// app은 run과 mcp-serve가 공유하는 키워드 구성입니다.
type app struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	browsers *browser.Manager
	library  *keywords.Library
	keywords *keywords.Registry
	logger   zerolog.Logger
}

// newApp은 브라우저 라이브러리, 시각 세션 키워드, 표준 키워드를 연결합니다.
func newApp(cfg *config.Config, logger zerolog.Logger) *app {
	m := metrics.NewMetrics()

	mgr := browser.NewManager(browser.NewOpener(cfg.WebDriver, logger), logger)
	libraries := browser.NewRegistry()
	libraries.Register(cfg.WebDriver.GetLibraryName(), mgr)

	lib := keywords.NewLibrary(cfg, libraries,
		keywords.WithMetrics(m),
		keywords.WithLogger(logger),
	)

	reg := keywords.NewRegistry(m, logger)
	keywords.RegisterBrowserKeywords(reg, mgr, cfg.WebDriver.Browser)
	lib.Register(reg)
	keywords.RegisterStandardKeywords(reg, logger)

	return &app{
		cfg:      cfg,
		metrics:  m,
		browsers: mgr,
		library:  lib,
		keywords: reg,
		logger:   logger,
	}
}

// shutdown은 열린 시각 세션을 중단하고 모든 브라우저를 닫습니다.
func (a *app) shutdown(ctx context.Context) {
	if _, err := a.library.AbortEyesSession(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("시각 세션 중단 실패")
	}
	if err := a.browsers.CloseAllBrowsers(); err != nil {
		a.logger.Warn().Err(err).Msg("브라우저 종료 실패")
	}
}
