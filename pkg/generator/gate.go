package generator

import "sync/atomic"

// gate はプロセス全体で同時に1件しか生成を許さない単一スロットのセマフォです。
// 取得できなかった呼び出しは待たずに失敗します（キューではありません）。
type gate struct {
	busy atomic.Bool
}

func (g *gate) tryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *gate) release() {
	g.busy.Store(false)
}

func (g *gate) inFlight() bool {
	return g.busy.Load()
}
