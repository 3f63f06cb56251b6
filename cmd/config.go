// Package cmd는 appeyes CLI의 명령어를 정의합니다.
// config.go는 설정 관리 명령을 구현합니다.
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/insajin/appeyes/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd는 설정 관리를 위한 상위 명령어입니다.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "설정을 관리합니다",
	Long: `설정 파일의 값을 조회하거나 수정합니다.

설정 파일 위치: ~/.config/appeyes/config.yaml

API 키는 설정 파일에 저장하지 않습니다.
eyes.api_key_env가 가리키는 환경변수로 설정하세요 (기본값: APPLITOOLS_API_KEY).`,
}

// configSetCmd는 설정 값을 저장하는 명령어입니다.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "설정 값을 저장합니다",
	Long: `설정 파일에 값을 저장합니다.

키는 점(.)으로 구분된 경로를 사용합니다.
예시:
  appeyes config set eyes.match_level LAYOUT
  appeyes config set webdriver.backend chromedp
  appeyes config set logging.level debug

지원하는 설정 키:
  eyes.server_url          - 시각 테스트 서버 주소
  eyes.api_key_env         - API 키 환경변수 이름
  eyes.match_level         - 기본 매치 레벨 (NONE, LAYOUT, LAYOUT2, CONTENT, STRICT, EXACT)
  eyes.match_timeout       - 체크 재시도 허용 시간 (예: 2s)
  eyes.retry_interval      - 재캡처 간격 (예: 500ms)
  eyes.request_timeout     - 서버 요청 타임아웃 (예: 5m)
  eyes.save_new_tests      - 새 테스트를 베이스라인으로 저장
  eyes.save_failed_tests   - 실패한 테스트로 베이스라인 갱신
  eyes.batch_id_env        - CI 배치 ID 환경변수 이름
  eyes.batch_name_env      - CI 잡 이름 환경변수 이름
  webdriver.library_name   - 브라우저 라이브러리 이름
  webdriver.backend        - 브라우저 백엔드 (selenium, chromedp)
  webdriver.remote_url     - Selenium 서버 주소
  webdriver.browser        - 기본 브라우저
  webdriver.headless       - 헤드리스 모드
  webdriver.viewport_width - 초기 창 너비
  webdriver.viewport_height - 초기 창 높이
  logging.level            - 로그 레벨 (debug, info, warn, error)
  logging.format           - 로그 포맷 (json, text)
  logging.file             - 로그 파일 경로 (비어있으면 stderr)
  mcpserver.name           - MCP 서버 이름`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

// configGetCmd는 설정 값을 조회하는 명령어입니다.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "설정 값을 조회합니다",
	Long: `설정 파일에서 특정 키의 값을 조회합니다.

예시:
  appeyes config get eyes.server_url
  appeyes config get logging.level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configShowCmd는 전체 설정을 출력하는 명령어입니다.
var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "전체 설정을 출력합니다",
	Long: `현재 적용된 모든 설정을 YAML 포맷으로 출력합니다.

API 키 환경변수 설정 여부도 함께 표시됩니다.
API 키는 마스킹 처리되어 표시됩니다.`,
	RunE: runConfigShow,
}

// configPathCmd는 설정 파일 경로를 출력하는 명령어입니다.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "설정 파일 경로를 출력합니다",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(config.DefaultConfigPath())
		return nil
	},
}

// configInitCmd는 기본 설정 파일을 생성하는 명령어입니다.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "기본 설정 파일을 생성합니다",
	Long: `기본 설정 파일을 ~/.config/appeyes/config.yaml에 생성합니다.

이미 파일이 존재하면 덮어쓰지 않습니다.
강제로 덮어쓰려면 --force 플래그를 사용하세요.`,
	RunE: runConfigInit,
}

var forceInit bool

func init() {
	rootCmd.AddCommand(configCmd)

	// 하위 명령 등록
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	// init 명령 플래그
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "기존 파일을 덮어씁니다")
}

// runConfigSet은 설정 값을 저장합니다.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// 유효한 키인지 확인
	if !isValidConfigKey(key) {
		return fmt.Errorf("알 수 없는 설정 키: %s", key)
	}

	// 값 변환 (숫자, 불리언 등)
	parsedValue := parseConfigValue(value)

	// viper에 설정
	viper.Set(key, parsedValue)

	// 설정 디렉토리 확인/생성
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("설정 디렉토리 생성 실패: %w", err)
	}

	// 설정 파일 저장
	configPath := config.DefaultConfigPath()
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("설정 파일 저장 실패: %w", err)
	}

	fmt.Printf("%s = %v\n", key, parsedValue)
	fmt.Printf("설정이 저장되었습니다: %s\n", configPath)
	return nil
}

// runConfigGet은 설정 값을 조회합니다.
func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	value := viper.Get(key)
	if value == nil {
		return fmt.Errorf("설정 키를 찾을 수 없습니다: %s", key)
	}

	fmt.Printf("%s = %v\n", key, value)
	return nil
}

// runConfigShow는 전체 설정을 출력합니다.
func runConfigShow(cmd *cobra.Command, args []string) error {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("설정 로드 실패: %w", err)
	}

	// 설정 파일 경로 출력
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		fmt.Printf("# 설정 파일: %s\n", configFile)
	} else {
		fmt.Printf("# 설정 파일: (기본값 사용 중)\n")
	}
	fmt.Println()

	// YAML로 직렬화
	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("YAML 직렬화 실패: %w", err)
	}

	fmt.Println(string(yamlData))

	// API 키 환경변수 상태 출력
	fmt.Println("# 환경변수 상태:")
	printEnvStatus(cfg.Eyes.APIKeyEnv)
	printEnvStatus(cfg.Eyes.BatchIDEnv)

	return nil
}

// runConfigInit은 기본 설정 파일을 생성합니다.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := config.DefaultConfigPath()

	// 기존 파일 확인
	if !forceInit {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("설정 파일이 이미 존재합니다: %s\n--force 플래그로 덮어쓸 수 있습니다", configPath)
		}
	}

	// 설정 디렉토리 생성
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("설정 디렉토리 생성 실패: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0600); err != nil {
		return fmt.Errorf("설정 파일 생성 실패: %w", err)
	}

	fmt.Printf("설정 파일이 생성되었습니다: %s\n", configPath)
	fmt.Println("\n다음 환경변수를 설정하세요:")
	fmt.Println("  export APPLITOOLS_API_KEY=<your-api-key>")
	return nil
}

// defaultConfigYAML은 config init이 생성하는 기본 설정 파일입니다.
const defaultConfigYAML = `# appeyes 설정 파일
# 생성됨: appeyes config init

eyes:
  server_url: "https://eyesapi.applitools.com"
  # API 키는 환경변수로 설정하세요 (APPLITOOLS_API_KEY)
  api_key_env: "APPLITOOLS_API_KEY"
  match_level: "STRICT"
  match_timeout: "2s"
  retry_interval: "500ms"
  request_timeout: "5m"
  save_new_tests: true
  save_failed_tests: false
  batch_id_env: "APPLITOOLS_BATCH_ID"
  batch_name_env: "JOB_NAME"

webdriver:
  library_name: "SeleniumLibrary"
  backend: "selenium"    # selenium, chromedp
  remote_url: "http://localhost:4444/wd/hub"
  browser: "chrome"
  headless: true
  viewport_width: 1280
  viewport_height: 720

logging:
  level: "info"    # debug, info, warn, error
  format: "text"   # json, text
  file: ""         # 비어있으면 stderr

mcpserver:
  name: "appeyes"
`

// isValidConfigKey는 유효한 설정 키인지 확인합니다.
func isValidConfigKey(key string) bool {
	validKeys := map[string]bool{
		"eyes.server_url":           true,
		"eyes.api_key_env":          true,
		"eyes.match_level":          true,
		"eyes.match_timeout":        true,
		"eyes.retry_interval":       true,
		"eyes.request_timeout":      true,
		"eyes.save_new_tests":       true,
		"eyes.save_failed_tests":    true,
		"eyes.batch_id_env":         true,
		"eyes.batch_name_env":       true,
		"webdriver.library_name":    true,
		"webdriver.backend":         true,
		"webdriver.remote_url":      true,
		"webdriver.browser":         true,
		"webdriver.headless":        true,
		"webdriver.viewport_width":  true,
		"webdriver.viewport_height": true,
		"logging.level":             true,
		"logging.format":            true,
		"logging.file":              true,
		"mcpserver.name":            true,
	}
	return validKeys[key]
}

// parseConfigValue는 문자열 값을 적절한 타입으로 변환합니다.
func parseConfigValue(value string) interface{} {
	// 불리언
	if value == "true" {
		return true
	}
	if value == "false" {
		return false
	}

	// 정수
	if intVal, err := strconv.Atoi(value); err == nil {
		return intVal
	}

	// 실수 ("2s" 같은 기간 문자열은 그대로 둡니다)
	if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
		return floatVal
	}

	// 기본: 문자열
	return value
}

// maskSensitiveValue는 민감한 값을 마스킹합니다.
func maskSensitiveValue(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***" + value[len(value)-4:]
}

// printEnvStatus는 환경변수 설정 상태를 출력합니다.
func printEnvStatus(envVar string) {
	if envVar == "" {
		return
	}
	value := os.Getenv(envVar)
	if value != "" {
		masked := maskSensitiveValue(value)
		fmt.Printf("  %s: 설정됨 (%s)\n", envVar, masked)
	} else {
		fmt.Printf("  %s: 설정되지 않음\n", envVar)
	}
}
