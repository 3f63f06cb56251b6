// Package cmd는 appeyes CLI의 명령어를 정의합니다.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/insajin/appeyes/internal/config"
	"github.com/insajin/appeyes/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// 전역 플래그
	cfgFile string
	verbose bool

	// 버전 정보 (main에서 주입)
	appVersion   string
	appCommit    string
	appBuildDate string
)

// rootCmd는 CLI의 루트 명령어입니다.
var rootCmd = &cobra.Command{
	Use:   "appeyes",
	Short: "Visual checkpoint keywords for browser tests",
	Long: `appeyes는 브라우저 테스트에 시각 체크포인트 키워드를 제공합니다.

YAML 키워드 스위트를 실행하거나(appeyes run),
MCP 도구로 키워드를 노출합니다(appeyes mcp-serve).

API 키는 환경변수로 설정합니다 (기본값: APPLITOOLS_API_KEY).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 로거 초기화
		return initLogger()
	},
}

// Execute는 루트 명령어를 실행합니다.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo는 버전 정보를 설정합니다.
func SetVersionInfo(version, commit, buildDate string) {
	appVersion = version
	appCommit = commit
	appBuildDate = buildDate
}

// GetVersionInfo는 버전 정보를 반환합니다.
func GetVersionInfo() (version, commit, buildDate string) {
	return appVersion, appCommit, appBuildDate
}

func init() {
	cobra.OnInitialize(initConfig)

	// 전역 플래그 정의
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"설정 파일 경로 (기본값: ~/.config/appeyes/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"상세 로그 출력 (debug 레벨)")
}

// initConfig는 설정 파일을 초기화합니다.
// 설정 우선순위: 환경변수 > 설정파일 > 기본값
func initConfig() {
	if cfgFile != "" {
		// 명시적 설정 파일 사용
		viper.SetConfigFile(cfgFile)
	} else {
		// 기본 설정 경로: ~/.config/appeyes/config.yaml
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "홈 디렉토리를 찾을 수 없습니다: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "appeyes")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// 환경변수 자동 바인딩 (APPEYES_ 접두사, 예: APPEYES_EYES_SERVER_URL)
	viper.SetEnvPrefix("APPEYES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 기본값 설정
	setDefaults()

	// 설정 파일 읽기 (없어도 오류 아님)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// 설정 파일이 있지만 읽기 실패한 경우만 오류
			fmt.Fprintf(os.Stderr, "설정 파일 읽기 실패: %v\n", err)
		}
	}
}

// setDefaults는 기본 설정값을 정의합니다.
func setDefaults() {
	// 시각 테스트 서버 설정
	viper.SetDefault("eyes.server_url", config.DefaultServerURL)
	viper.SetDefault("eyes.api_key_env", "APPLITOOLS_API_KEY")
	viper.SetDefault("eyes.match_level", "STRICT")
	viper.SetDefault("eyes.match_timeout", "2s")
	viper.SetDefault("eyes.retry_interval", "500ms")
	viper.SetDefault("eyes.request_timeout", "5m")
	viper.SetDefault("eyes.save_new_tests", true)
	viper.SetDefault("eyes.save_failed_tests", false)
	viper.SetDefault("eyes.batch_id_env", "APPLITOOLS_BATCH_ID")
	viper.SetDefault("eyes.batch_name_env", "JOB_NAME")

	// 브라우저 설정
	viper.SetDefault("webdriver.library_name", config.DefaultLibraryName)
	viper.SetDefault("webdriver.backend", "selenium")
	viper.SetDefault("webdriver.remote_url", "http://localhost:4444/wd/hub")
	viper.SetDefault("webdriver.browser", "chrome")
	viper.SetDefault("webdriver.headless", true)
	viper.SetDefault("webdriver.viewport_width", 1280)
	viper.SetDefault("webdriver.viewport_height", 720)

	// 로깅 설정
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.file", "")

	// MCP 서버 설정
	viper.SetDefault("mcpserver.name", "appeyes")
}

// loadConfig는 설정을 로드하고 검증합니다.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("설정 로드 실패: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("설정 검증 실패: %w", err)
	}
	return cfg, nil
}

// initLogger는 로거를 초기화합니다.
func initLogger() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 로거 설정
	logger.Setup(cfg.Logging)
	return nil
}
