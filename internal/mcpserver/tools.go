package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/insajin/appeyes/internal/keywords"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolName converts a keyword name to a snake_case tool name:
// "Check Eyes Region By Selector" -> "check_eyes_region_by_selector".
func ToolName(keyword string) string {
	return strings.ToLower(strings.Join(strings.Fields(keyword), "_"))
}

// keywordTool builds the tool definition for kw. Every argument is a
// string; arguments without a default are required.
func keywordTool(kw *keywords.Keyword) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(kw.Doc),
	}
	for _, a := range kw.Args {
		desc := a.Doc
		if a.Optional && a.Default != "" {
			desc = fmt.Sprintf("%s (default: %s)", desc, a.Default)
		}
		propOpts := []mcp.PropertyOption{mcp.Description(desc)}
		if !a.Optional {
			propOpts = append(propOpts, mcp.Required())
		}
		opts = append(opts, mcp.WithString(a.Name, propOpts...))
	}
	return mcp.NewTool(ToolName(kw.Name), opts...)
}

// KeywordResult는 키워드 도구의 응답 본문입니다.
type KeywordResult struct {
	Keyword string      `json:"keyword"`
	Result  interface{} `json:"result,omitempty"`
}

// handleKeyword는 키워드 하나를 실행하는 도구 핸들러를 만듭니다.
// 키워드 실패는 도구 에러 결과로 반환합니다.
func (s *Server) handleKeyword(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		named := make(map[string]string)
		for k, v := range request.GetArguments() {
			named[k] = argString(v)
		}

		s.logger.Info().
			Str("keyword", name).
			Int("args", len(named)).
			Msg("키워드 실행 요청")

		value, err := s.keywords.RunNamed(ctx, name, named)
		if err != nil {
			s.logger.Error().Err(err).Str("keyword", name).Msg("키워드 실행 실패")
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", name, err.Error())), nil
		}

		result, err := json.Marshal(KeywordResult{Keyword: name, Result: value})
		if err != nil {
			return mcp.NewToolResultError("Failed to serialize response"), nil
		}

		return mcp.NewToolResultText(string(result)), nil
	}
}

// KeywordInfo는 list_keywords 응답의 항목입니다.
type KeywordInfo struct {
	Name      string `json:"name"`
	Tool      string `json:"tool"`
	Signature string `json:"signature"`
	Doc       string `json:"doc"`
}

// handleListKeywords는 list_keywords 도구 핸들러입니다.
func (s *Server) handleListKeywords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kws := s.keywords.Keywords()
	infos := make([]KeywordInfo, 0, len(kws))
	for _, kw := range kws {
		infos = append(infos, KeywordInfo{
			Name:      kw.Name,
			Tool:      ToolName(kw.Name),
			Signature: kw.Signature(),
			Doc:       kw.Doc,
		})
	}

	result, err := json.Marshal(infos)
	if err != nil {
		return mcp.NewToolResultError("Failed to serialize response"), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// argString renders a JSON argument as the string a keyword expects.
// Booleans become True/False and whole numbers lose their decimal point.
func argString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
