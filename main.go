// Package main은 appeyes CLI의 진입점입니다.
// YAML 스위트의 시각 체크포인트 키워드를 실행하거나 MCP 도구로 노출합니다.
package main

import (
	"os"

	"github.com/insajin/appeyes/cmd"
)

// 빌드 시 ldflags로 주입되는 버전 정보
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// 버전 정보를 root 패키지에 설정
	cmd.SetVersionInfo(version, commit, buildDate)

	// CLI 실행
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
