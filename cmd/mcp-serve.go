package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/insajin/appeyes/internal/mcpserver"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mcpServeCmd)
}

// mcpServeCmd는 MCP 서버를 시작하는 Cobra 서브커맨드입니다.
var mcpServeCmd = &cobra.Command{
	Use:   "mcp-serve",
	Short: "Start the appeyes MCP server (stdio transport)",
	Long: `appeyes 키워드를 MCP 도구로 노출하는 서버를 stdio 트랜스포트로 시작합니다.
키워드마다 snake_case 이름의 도구가 하나씩 등록됩니다 (예: check_eyes_window).

사용 예시 (MCP 클라이언트 설정):
  {
    "mcpServers": {
      "appeyes": {
        "command": "appeyes",
        "args": ["mcp-serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

// runMCPServe는 MCP 서버를 시작합니다.
func runMCPServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := log.With().Str("component", "mcp-serve").Logger()
	logger.Info().Msg("appeyes MCP 서버를 시작합니다...")

	a := newApp(cfg, log.Logger)
	srv := mcpserver.NewServer(cfg.MCPServer.Name, a.keywords, a.metrics, log.Logger)

	// 시그널 핸들링 (graceful shutdown): 열린 세션과 브라우저를 정리합니다
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("종료 시그널 수신, MCP 서버를 종료합니다")
		a.shutdown(context.Background())
		os.Exit(0)
	}()

	logger.Info().
		Str("server_url", cfg.Eyes.GetServerURL()).
		Str("library", cfg.WebDriver.GetLibraryName()).
		Msg("MCP 서버 준비 완료, stdio 대기 중...")

	err = srv.Start()
	a.shutdown(context.Background())
	if err != nil {
		return fmt.Errorf("MCP 서버 실행 실패: %w", err)
	}
	return nil
}
