package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/server"

	"github.com/spf13/cobra"
)

var serveOpts struct {
	projectFlags
	Addr string
}

// serveCmd はストーリーボードを編集・生成する HTTP API を起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTP API と WebSocket の変更通知を提供するのだ。",
	Long: `メモリ上のプロジェクトを HTTP API で編集し、シーンの生成を依頼できるのだ。
--project を指定すると起動時にそのプロジェクトを読み込むのだよ。`,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVarP(&serveOpts.Addr, "addr", "a", "", "待ち受けアドレスなのだ。（既定: LISTEN_ADDR または :8080）")
	addProjectFlags(serveCmd, &serveOpts.projectFlags)
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()
	if serveOpts.Addr != "" {
		cfg.ListenAddr = serveOpts.Addr
	}

	var (
		app *builder.AppContext
		err error
	)
	// --project か --sample を明示したときだけ起動時に読み込むのだ。
	if serveOpts.Sample || cmd.Flags().Changed("project") {
		app, _, err = loadProject(ctx, cfg, serveOpts.projectFlags)
	} else {
		app, err = builder.NewAppContext(ctx, cfg)
	}
	if err != nil {
		return err
	}

	srv, err := server.New(server.Args{Orchestrator: app.Orchestrator})
	if err != nil {
		return err
	}
	if err := srv.Run(ctx, cfg.ListenAddr); err != nil && ctx.Err() == nil {
		return fmt.Errorf("サーバーが異常終了したのだ: %w", err)
	}
	return nil
}
