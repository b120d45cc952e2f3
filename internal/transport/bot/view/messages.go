package view

const StartMessage = `👋 <b>shirtdrop operator</b>

/status - watcher state
/drops - drops with mint progress
/stats <code>drop-id</code> - drop counters
/close <code>drop-id</code> - close the auction now
/watcher <code>start|stop</code> - pause or resume the auction watcher`

const (
	DropsEmpty          = "📭 No drops yet"
	DropsError          = "❌ Failed to load drops"
	DropsPageTemplate   = "📦 <b>Drops</b> (page %d/%d)\n\n"
	DropItemTemplate    = "• <b>%s</b>\n  <code>%s</code>\n  minted %d/%d%s\n"
	DropAuctionOpen     = ", auction until %s"
	DropAuctionClosed   = ", auction closed"
	StatsTemplate       = "📊 <b>%s</b>\n\nsupply: %d\nminted: %d\nclaimed: %d\ntokens: %d\nbids: %d"
	StatusTemplate      = "📊 <b>Status</b>\n\n🔍 <b>Auction watcher:</b> %s\n🕒 <b>Last sweep:</b> %s"
	WatcherRunning      = "🟢 running"
	WatcherStopped      = "🔴 stopped"
	NeverSwept          = "never"
	UsageStats          = "❌ Usage: /stats <code>drop-id</code>"
	UsageClose          = "❌ Usage: /close <code>drop-id</code>"
	UsageWatcher        = "❌ Usage: /watcher <code>start|stop</code>"
	InvalidDropID       = "❌ Invalid drop id"
	AuctionClosed       = "🏁 Auction closed: %d winners, %d lost"
	AuctionCloseFailed  = "❌ Close failed: %s"
	StatsFailed         = "❌ Stats failed: %s"
	WatcherStarted      = "▶️ Auction watcher started"
	WatcherAlreadyOn    = "⚠️ Auction watcher is already running"
	WatcherStartFailed  = "❌ Watcher start failed: %s"
	WatcherStoppedReply = "⏸ Auction watcher stopped"
	WatcherAlreadyOff   = "⚠️ Auction watcher is not running"
)
