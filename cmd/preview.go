package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var previewOpts projectFlags

// previewCmd は外部サービスを呼ばずに、各シーンの基本プロンプトを表示するのだ。
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "各シーンの画像生成プロンプトを確認するのだ。",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, _, err := loadProject(ctx, loadConfig(), previewOpts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, scene := range app.Store.Scenes() {
			prompt, err := app.Orchestrator.PreviewPrompt(scene.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "## Panel %d\n\n%s\n\n", scene.PanelNumber, prompt)
		}
		return nil
	},
}

func init() {
	addProjectFlags(previewCmd, &previewOpts)
}
