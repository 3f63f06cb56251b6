package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/insajin/appeyes/internal/report"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var keywordsJSON bool

// keywordsCmd는 사용 가능한 키워드를 출력하는 명령어입니다.
var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "사용 가능한 키워드 목록을 출력합니다",
	Long: `스위트와 MCP 도구에서 사용할 수 있는 키워드의
인자 목록과 설명을 출력합니다.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a := newApp(cfg, zerolog.Nop())
		kws := a.keywords.Keywords()

		if !keywordsJSON {
			fmt.Fprint(cmd.OutOrStdout(), report.Keywords(kws, 100))
			return nil
		}

		type entry struct {
			Name      string `json:"name"`
			Signature string `json:"signature"`
			Doc       string `json:"doc"`
		}
		entries := make([]entry, 0, len(kws))
		for _, kw := range kws {
			entries = append(entries, entry{Name: kw.Name, Signature: kw.Signature(), Doc: kw.Doc})
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("JSON 직렬화 실패: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keywordsCmd)
	keywordsCmd.Flags().BoolVar(&keywordsJSON, "json", false, "JSON으로 출력합니다")
}
