package builder

import (
	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/store"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持します。
// これを各コマンドに渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config       *config.Config             // Config は環境変数とフラグから組み立てた設定です。
	Store        *store.Store               // Store はメモリ上のプロジェクトです。
	Orchestrator *workflow.Orchestrator     // Orchestrator はシーン生成の実行役です。
	References   *generator.ReferenceLoader // References は参照画像の読み込みを担います。
	Reader       remoteio.InputReader       // Reader はプロジェクトファイルの読み込みに使用する入力元です。nil の場合があります。
	Writer       remoteio.OutputWriter      // Writer は生成物の保存先です。nil の場合があります。
}
