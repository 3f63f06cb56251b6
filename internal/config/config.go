// Package config는 appeyes의 설정 관리를 담당합니다.
// 설정 우선순위: 환경변수 > 설정파일 > 기본값
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config는 전체 애플리케이션 설정을 나타냅니다.
type Config struct {
	Eyes      EyesConfig      `mapstructure:"eyes" yaml:"eyes"`
	WebDriver WebDriverConfig `mapstructure:"webdriver" yaml:"webdriver"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	MCPServer MCPServerConfig `mapstructure:"mcpserver" yaml:"mcpserver"`
}

// EyesConfig는 시각 테스트 서비스 연결 설정입니다.
type EyesConfig struct {
	// ServerURL은 시각 테스트 서버 주소입니다.
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`
	// APIKeyEnv는 API 키를 가져올 환경변수 이름입니다.
	// API 키는 설정 파일에 평문으로 저장하지 않습니다.
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env"`
	// MatchLevel은 기본 매치 레벨입니다 (STRICT, LAYOUT, CONTENT 등).
	MatchLevel string `mapstructure:"match_level" yaml:"match_level"`
	// MatchTimeout은 체크 시 재시도 허용 시간입니다 (예: "2s"). 0이면 한 번만 비교합니다.
	MatchTimeout string `mapstructure:"match_timeout" yaml:"match_timeout"`
	// RetryInterval은 매치 타임아웃 안에서 재캡처 간격입니다 (예: "500ms").
	RetryInterval string `mapstructure:"retry_interval" yaml:"retry_interval"`
	// RequestTimeout은 서버 요청 타임아웃입니다 (예: "5m").
	RequestTimeout string `mapstructure:"request_timeout" yaml:"request_timeout"`
	// SaveNewTests는 새 테스트의 결과를 베이스라인으로 저장할지 여부입니다.
	SaveNewTests bool `mapstructure:"save_new_tests" yaml:"save_new_tests"`
	// SaveFailedTests는 실패한 테스트 결과로 베이스라인을 갱신할지 여부입니다.
	SaveFailedTests bool `mapstructure:"save_failed_tests" yaml:"save_failed_tests"`
	// BatchIDEnv는 CI 플러그인이 제공하는 배치 ID 환경변수 이름입니다.
	BatchIDEnv string `mapstructure:"batch_id_env" yaml:"batch_id_env"`
	// BatchNameEnv는 CI 잡 이름 환경변수 이름입니다.
	BatchNameEnv string `mapstructure:"batch_name_env" yaml:"batch_name_env"`
}

// WebDriverConfig는 브라우저 라이브러리 설정입니다.
type WebDriverConfig struct {
	// LibraryName은 Open Eyes Session이 브라우저를 빌려올 라이브러리 이름입니다.
	LibraryName string `mapstructure:"library_name" yaml:"library_name"`
	// Backend는 브라우저 백엔드입니다 ("selenium", "chromedp").
	Backend string `mapstructure:"backend" yaml:"backend"`
	// RemoteURL은 Selenium/WebDriver 서버 주소입니다.
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url"`
	// Browser는 기본 브라우저 이름입니다 (chrome, firefox 등).
	Browser string `mapstructure:"browser" yaml:"browser"`
	// Headless는 헤드리스 모드 사용 여부입니다.
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// ViewportWidth, ViewportHeight는 브라우저 초기 창 크기입니다.
	ViewportWidth  int `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int `mapstructure:"viewport_height" yaml:"viewport_height"`
}

// LoggingConfig는 로깅 설정입니다.
type LoggingConfig struct {
	// Level은 로그 레벨입니다 (debug, info, warn, error).
	Level string `mapstructure:"level" yaml:"level"`
	// Format은 로그 포맷입니다 (json, text).
	Format string `mapstructure:"format" yaml:"format"`
	// File은 로그 파일 경로입니다. 비어있으면 stderr로 출력합니다.
	File string `mapstructure:"file" yaml:"file"`
}

// MCPServerConfig는 MCP 서버 설정입니다.
type MCPServerConfig struct {
	// Name은 MCP 클라이언트에 노출되는 서버 이름입니다.
	Name string `mapstructure:"name" yaml:"name"`
}

// Load는 설정을 로드하고 Config 구조체를 반환합니다.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("설정 파싱 실패: %w", err)
	}

	// 홈 디렉토리 경로 확장
	cfg.Logging.File = expandPath(cfg.Logging.File)

	return &cfg, nil
}

// GetAPIKey는 환경변수에서 API 키를 가져옵니다.
func (e *EyesConfig) GetAPIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// GetServerURL은 서버 주소를 반환합니다.
// 설정되지 않은 경우 기본값을 반환합니다.
func (e *EyesConfig) GetServerURL() string {
	if e.ServerURL == "" {
		return DefaultServerURL
	}
	return strings.TrimRight(e.ServerURL, "/")
}

// GetMatchTimeout은 매치 타임아웃을 반환합니다.
// 파싱할 수 없으면 0(재시도 없음)을 반환합니다.
func (e *EyesConfig) GetMatchTimeout() time.Duration {
	return parseDuration(e.MatchTimeout, 0)
}

// GetRetryInterval은 재캡처 간격을 반환합니다. 기본값: 500ms
func (e *EyesConfig) GetRetryInterval() time.Duration {
	return parseDuration(e.RetryInterval, 500*time.Millisecond)
}

// GetRequestTimeout은 서버 요청 타임아웃을 반환합니다. 기본값: 5분
func (e *EyesConfig) GetRequestTimeout() time.Duration {
	return parseDuration(e.RequestTimeout, 5*time.Minute)
}

// GetLibraryName은 브라우저 라이브러리 이름을 반환합니다.
func (w *WebDriverConfig) GetLibraryName() string {
	if w.LibraryName == "" {
		return DefaultLibraryName
	}
	return w.LibraryName
}

// GetBackend는 브라우저 백엔드를 반환합니다. 기본값: "selenium"
func (w *WebDriverConfig) GetBackend() string {
	if w.Backend == "" {
		return "selenium"
	}
	return strings.ToLower(w.Backend)
}

const (
	// DefaultServerURL은 기본 시각 테스트 서버 주소입니다.
	DefaultServerURL = "https://eyesapi.applitools.com"
	// DefaultLibraryName은 기본 브라우저 라이브러리 이름입니다.
	DefaultLibraryName = "SeleniumLibrary"
)

// Validate는 설정의 유효성을 검사합니다.
func (c *Config) Validate() error {
	if c.Eyes.MatchLevel != "" {
		validMatchLevels := map[string]bool{
			"NONE": true, "LAYOUT": true, "LAYOUT2": true,
			"CONTENT": true, "STRICT": true, "EXACT": true,
		}
		if !validMatchLevels[strings.ToUpper(c.Eyes.MatchLevel)] {
			return fmt.Errorf("유효하지 않은 매치 레벨: %s (NONE, LAYOUT, LAYOUT2, CONTENT, STRICT, EXACT 중 하나)", c.Eyes.MatchLevel)
		}
	}

	for name, value := range map[string]string{
		"eyes.match_timeout":   c.Eyes.MatchTimeout,
		"eyes.retry_interval":  c.Eyes.RetryInterval,
		"eyes.request_timeout": c.Eyes.RequestTimeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("유효하지 않은 %s 값: %s", name, value)
		}
	}

	validBackends := map[string]bool{
		"selenium": true,
		"chromedp": true,
	}
	if !validBackends[c.WebDriver.GetBackend()] {
		return fmt.Errorf("유효하지 않은 브라우저 백엔드: %s (selenium, chromedp 중 하나)", c.WebDriver.Backend)
	}

	// 로그 레벨 검증
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("유효하지 않은 로그 레벨: %s (debug, info, warn, error 중 하나)", c.Logging.Level)
	}

	// 로그 포맷 검증
	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("유효하지 않은 로그 포맷: %s (json, text 중 하나)", c.Logging.Format)
	}

	return nil
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// expandPath는 ~를 홈 디렉토리로 확장합니다.
func expandPath(path string) string {
	if path == "" {
		return ""
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// ConfigDir는 설정 디렉토리 경로를 반환합니다.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("홈 디렉토리를 찾을 수 없습니다: %w", err)
	}
	return filepath.Join(home, ".config", "appeyes"), nil
}

// EnsureConfigDir는 설정 디렉토리가 존재하는지 확인하고 없으면 생성합니다.
func EnsureConfigDir() error {
	configDir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("설정 디렉토리 생성 실패: %w", err)
	}
	return nil
}

// DefaultConfigPath는 기본 설정 파일 경로를 반환합니다.
func DefaultConfigPath() string {
	configDir, err := ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}
