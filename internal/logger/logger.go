// Package logger는 구조화된 로깅을 제공합니다.
// 모든 출력은 민감 정보(API 키, 토큰)를 마스킹한 뒤 기록됩니다.
package logger

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/insajin/appeyes/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// 민감 정보 패턴
var sensitivePatterns = []*regexp.Regexp{
	// JWT 토큰 패턴 (eyJ로 시작하는 Base64)
	regexp.MustCompile(`(eyJ[a-zA-Z0-9\-_]+\.eyJ[a-zA-Z0-9\-_]+\.[a-zA-Z0-9\-_]+)`),
	// Bearer 토큰
	regexp.MustCompile(`(Bearer\s+[a-zA-Z0-9\-_\.]+)`),
	// 키-값 패턴 (apiKey=, api_key=, token= 등). 쿼리 문자열의 apiKey도 포함합니다.
	regexp.MustCompile(`(?i)((?:api[_-]?key|key|token|secret|password)\s*[=:]\s*)([a-zA-Z0-9\-_\.]{10,})`),
}

// keyValueSplit은 키-값 패턴의 구분자입니다.
var keyValueSplit = regexp.MustCompile(`[=:]`)

// maskedWriter는 민감 정보를 마스킹하는 io.Writer입니다.
type maskedWriter struct {
	underlying io.Writer
}

// Write는 민감 정보를 마스킹한 후 기록합니다.
func (w *maskedWriter) Write(p []byte) (n int, err error) {
	masked := MaskSensitive(string(p))
	if _, err := w.underlying.Write([]byte(masked)); err != nil {
		return 0, err
	}
	// 호출자에게는 원본 길이를 보고해야 short write로 취급되지 않습니다.
	return len(p), nil
}

// Setup은 로거를 초기화합니다.
func Setup(cfg config.LoggingConfig) {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// 타임스탬프 포맷 설정 (RFC3339)
	zerolog.TimeFieldFormat = time.RFC3339

	// stdout은 실행 리포트와 MCP stdio 트랜스포트가 사용합니다.
	var output io.Writer = os.Stderr
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			// 파일 열기 실패 시 stderr 사용
			log.Warn().Err(err).Str("file", cfg.File).Msg("로그 파일을 열 수 없어 stderr를 사용합니다")
		} else {
			output = file
		}
	}

	log.Logger = New(output, cfg.Format)
}

// New는 주어진 출력과 포맷으로 마스킹 로거를 생성합니다.
func New(output io.Writer, format string) zerolog.Logger {
	maskedOutput := &maskedWriter{underlying: output}

	if format == "text" {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        maskedOutput,
			TimeFormat: time.RFC3339,
		}
		return zerolog.New(consoleWriter).With().Timestamp().Logger()
	}
	return zerolog.New(maskedOutput).With().Timestamp().Logger()
}

// EyesLogger는 base에서 파생된 시각 테스트 클라이언트용 로거를 반환합니다.
// 키워드의 include eyes log 플래그가 꺼져 있으면 아무것도 기록하지 않습니다.
func EyesLogger(base zerolog.Logger, enabled bool) zerolog.Logger {
	if !enabled {
		return zerolog.Nop()
	}
	return base.With().Str("component", "eyes").Logger()
}

// parseLevel은 문자열 레벨을 zerolog.Level로 변환합니다.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// MaskSensitive는 문자열에서 민감 정보를 마스킹합니다.
func MaskSensitive(input string) string {
	result := input
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			// Bearer 토큰 처리
			if strings.HasPrefix(match, "Bearer ") {
				return "Bearer " + maskValue(strings.TrimPrefix(match, "Bearer "))
			}
			// 키-값 패턴 처리 (apiKey=xxx 형태)
			if strings.ContainsAny(match, "=:") {
				parts := keyValueSplit.Split(match, 2)
				if len(parts) == 2 {
					prefix := parts[0] + string(match[len(parts[0])])
					value := strings.TrimSpace(parts[1])
					return prefix + maskValue(value)
				}
			}
			return maskValue(match)
		})
	}
	return result
}

// maskValue는 값을 마스킹합니다.
// 앞 4자와 뒤 4자만 남기고 나머지는 ***로 대체합니다.
func maskValue(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***" + value[len(value)-4:]
}

// WithComponent는 컴포넌트 필드를 추가한 로거를 반환합니다.
func WithComponent(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
