// Package mcpserver exposes the keyword registry as MCP tools over stdio.
package mcpserver

import (
	"github.com/insajin/appeyes/internal/keywords"
	"github.com/insajin/appeyes/internal/metrics"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

const (
	// DefaultServerName은 설정이 없을 때 사용하는 MCP 서버 이름입니다.
	DefaultServerName = "appeyes"
	// ServerVersion은 MCP 서버 버전입니다.
	ServerVersion = "0.1.0"
)

// Server는 키워드 레지스트리를 MCP 도구로 노출합니다.
// mark3labs/mcp-go를 사용하여 stdio 기반 MCP 프로토콜을 처리합니다.
type Server struct {
	mcpServer *server.MCPServer
	keywords  *keywords.Registry
	metrics   *metrics.Metrics
	tools     []mcp.Tool
	logger    zerolog.Logger
}

// NewServer는 새 MCP 서버를 생성합니다.
// 레지스트리의 키워드마다 도구 하나와 list_keywords 도구를 등록합니다.
func NewServer(name string, reg *keywords.Registry, m *metrics.Metrics, logger zerolog.Logger) *Server {
	if name == "" {
		name = DefaultServerName
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	s := &Server{
		keywords: reg,
		metrics:  m,
		logger:   logger.With().Str("component", "mcpserver").Logger(),
	}

	s.mcpServer = server.NewMCPServer(
		name,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.registerTools()
	s.registerResources()

	s.logger.Info().
		Str("name", name).
		Str("version", ServerVersion).
		Int("tools", len(s.tools)).
		Msg("MCP 서버 초기화 완료")

	return s
}

// Start는 stdio 기반 MCP 서버를 시작합니다.
// 이 함수는 서버가 종료될 때까지 블로킹됩니다.
func (s *Server) Start() error {
	s.logger.Info().Msg("MCP 서버 시작 (stdio 트랜스포트)")
	return server.ServeStdio(s.mcpServer)
}

// Tools는 등록된 도구를 등록 순서대로 반환합니다.
func (s *Server) Tools() []mcp.Tool {
	return s.tools
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.tools = append(s.tools, tool)
	s.mcpServer.AddTool(tool, handler)
}

// registerTools는 키워드 도구와 list_keywords 도구를 등록합니다.
func (s *Server) registerTools() {
	for _, kw := range s.keywords.Keywords() {
		s.addTool(keywordTool(kw), s.handleKeyword(kw.Name))
	}

	listTool := mcp.NewTool("list_keywords",
		mcp.WithDescription("List the available keywords with their arguments and documentation."),
	)
	s.addTool(listTool, s.handleListKeywords)

	s.logger.Debug().Int("count", len(s.tools)).Msg("MCP 도구 등록 완료")
}

// registerResources는 실행 지표 리소스를 등록합니다.
func (s *Server) registerResources() {
	metricsResource := mcp.NewResource(
		"appeyes://metrics",
		"Run Metrics",
		mcp.WithResourceDescription("Visual session and keyword counters for this server"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(metricsResource, s.handleMetricsResource)

	s.logger.Debug().Msg("MCP 리소스 등록 완료")
}
