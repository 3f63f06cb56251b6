package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/insajin/appeyes/internal/report"
	"github.com/insajin/appeyes/internal/suite"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	runVars      []string
	runJSON      bool
	runWidth     int
	runNoMetrics bool
)

// runCmd는 키워드 스위트를 실행하는 명령어입니다.
var runCmd = &cobra.Command{
	Use:   "run <suite.yaml>...",
	Short: "키워드 스위트를 실행합니다",
	Long: `YAML 키워드 스위트를 순서대로 실행하고 결과 요약을 출력합니다.

스위트 예시:
  name: NaviNet
  variables:
    url: http://www.navinet.net/
  suite_setup:
    - [Open Browser, "${url}", gc]
  tests:
    - name: Home page
      steps:
        - [Open Eyes Session, "${url}", RobotAppEyes_Test, Home, width=1024, height=768]
        - [Check Eyes Window, NaviNet Home]
      teardown:
        - [Close Eyes Session]
  suite_teardown:
    - Close All Browsers

실패한 테스트가 있으면 종료 코드 1을 반환합니다.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSuites,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "스위트 변수 덮어쓰기 (name=value, 반복 가능)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "결과를 JSON으로 출력합니다")
	runCmd.Flags().IntVar(&runWidth, "width", 100, "리포트 너비")
	runCmd.Flags().BoolVar(&runNoMetrics, "no-metrics", false, "시각 체크 지표를 출력하지 않습니다")
}

// runSuites는 스위트 파일을 로드하고 실행합니다.
func runSuites(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	overrides, err := parseVars(runVars)
	if err != nil {
		return err
	}

	// 모든 파일을 먼저 검증합니다
	suites := make([]*suite.Suite, 0, len(args))
	for _, path := range args {
		s, err := suite.Load(path)
		if err != nil {
			return err
		}
		if s.Variables == nil {
			s.Variables = make(map[string]string)
		}
		for k, v := range overrides {
			s.Variables[k] = v
		}
		suites = append(suites, s)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, log.Logger)
	defer a.shutdown(context.WithoutCancel(ctx))

	runner := suite.NewRunner(a.keywords, log.Logger)
	results := make([]*suite.Result, 0, len(suites))
	failed := 0
	for _, s := range suites {
		res := runner.Run(ctx, s)
		results = append(results, res)
		failed += res.Failed()
	}

	out := cmd.OutOrStdout()
	if runJSON {
		data, err := json.MarshalIndent(struct {
			Suites  []*suite.Result `json:"suites"`
			Metrics interface{}     `json:"metrics"`
		}{results, a.metrics.Snapshot()}, "", "  ")
		if err != nil {
			return fmt.Errorf("JSON 직렬화 실패: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		snap := a.metrics.Snapshot()
		if runNoMetrics {
			fmt.Fprint(out, report.Summary(results, nil, runWidth))
		} else {
			fmt.Fprint(out, report.Summary(results, &snap, runWidth))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d개 테스트 실패", failed)
	}
	return nil
}

// parseVars는 name=value 목록을 변수 맵으로 변환합니다.
func parseVars(items []string) (map[string]string, error) {
	vars := make(map[string]string, len(items))
	for _, item := range items {
		name, value, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("잘못된 변수 형식: %q (name=value)", item)
		}
		vars[strings.TrimSpace(name)] = value
	}
	return vars, nil
}
