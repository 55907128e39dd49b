// Package bot turns inbound chat messages into queued jobs and immediate
// replies. Parsing is strict about what reaches the queue: symbols are
// normalized and sanitized before they are stored.
package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"tickerbot/internal/market"
	"tickerbot/internal/metrics"
	"tickerbot/internal/model"
	"tickerbot/internal/notification"
	"tickerbot/internal/queue"
)

const (
	defaultBase  = "BTC"
	defaultQuote = "USDT"
)

// Router maps commands to queue writes and acknowledgement replies.
type Router struct {
	store   queue.Store
	sink    notification.Sink
	metrics *metrics.Metrics // may be nil
}

// NewRouter builds a command router.
func NewRouter(store queue.Store, sink notification.Sink, m *metrics.Metrics) *Router {
	return &Router{store: store, sink: sink, metrics: m}
}

// HandleMessage processes one inbound text message. Non-command text is
// ignored; unknown slash commands get a pointer to /help.
func (r *Router) HandleMessage(ctx context.Context, chatID int64, text string) {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return
	}
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/start":
		r.reply(ctx, chatID, startMessage)

	case "/harga", "/price":
		r.enqueue(ctx, chatID, model.CommandPrice, args, "⏳ Fetching price for %s/%s...")

	case "/chart":
		r.enqueue(ctx, chatID, model.CommandChart, args, "⏳ Generating chart for %s/%s...")

	case "/chartdaily", "/candlestick":
		r.enqueue(ctx, chatID, model.CommandCandlestick, args, "⏳ Generating candlestick chart for %s/%s...")

	case "/indicator", "/stochrsi":
		r.enqueue(ctx, chatID, model.CommandIndicator, args, "⏳ Calculating StochRSI for %s/%s...")

	case "/stop", "/cancel":
		n, err := r.store.Cancel(ctx, chatID)
		if err != nil {
			log.Printf("[bot] cancel jobs for chat %d: %v", chatID, err)
			r.reply(ctx, chatID, "❌ Could not cancel your jobs, please try again.")
			return
		}
		if r.metrics != nil {
			r.metrics.JobsCancelled.Add(float64(n))
		}
		r.reply(ctx, chatID, "✅ All pending jobs have been cancelled.")

	case "/help":
		r.reply(ctx, chatID, helpMessage)

	default:
		if strings.HasPrefix(command, "/") {
			r.reply(ctx, chatID, "❌ Unknown command. Use /help to see available commands.")
		}
	}
}

// enqueue stores one job and acknowledges it. ack is a format string
// taking base and quote.
func (r *Router) enqueue(ctx context.Context, chatID int64, command model.Command, args []string, ack string) {
	base, quote := parsePair(args)
	if market.Symbol(base, "", "") == "" || market.Symbol(quote, "", "") == "" {
		// One side sanitized away entirely.
		r.reply(ctx, chatID, "❌ Invalid trading pair. Example: `/price BTC USDT`")
		return
	}
	symbol := market.Symbol(base, quote, "")

	if _, err := r.store.Enqueue(ctx, chatID, command, symbol); err != nil {
		log.Printf("[bot] enqueue %s %s for chat %d: %v", command, symbol, chatID, err)
		r.reply(ctx, chatID, "❌ Could not queue your request, please try again.")
		return
	}
	if r.metrics != nil {
		r.metrics.JobsEnqueued.Inc()
	}
	r.reply(ctx, chatID, fmt.Sprintf(ack, base, quote))
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if err := r.sink.SendText(ctx, chatID, text); err != nil {
		log.Printf("[bot] reply to chat %d: %v", chatID, err)
	}
}

// parsePair reads base and quote from command arguments, falling back to
// BTC/USDT the way the bot has always defaulted.
func parsePair(args []string) (base, quote string) {
	base, quote = defaultBase, defaultQuote
	if len(args) >= 1 && args[0] != "" {
		base = strings.ToUpper(args[0])
	}
	if len(args) >= 2 && args[1] != "" {
		quote = strings.ToUpper(args[1])
	}
	return base, quote
}

const startMessage = "👋 Hello!\n\n" +
	"🤖 *Crypto Telegram Bot*\n" +
	"Monitor cryptocurrency prices from Binance\n\n" +
	"📊 *Available Commands:*\n" +
	"/price BTC USDT - Get current price\n" +
	"/chart ETH USDT - Line chart (1 hour)\n" +
	"/chartdaily BTC USDT - Candlestick chart (30 days)\n" +
	"/indicator BTC USDT - Stochastic RSI analysis\n" +
	"/stop - Cancel all pending jobs\n" +
	"/help - Show this help message\n\n" +
	"💡 *Example:* `/price BTC USDT`\n" +
	"📈 Supports all Binance USDT pairs!"

const helpMessage = "📚 *Command Guide*\n\n" +
	"🔹 */price [BASE] [QUOTE]*\n" +
	"Get real-time price and 24h statistics\n" +
	"Example: `/price BTC USDT`\n\n" +
	"🔹 */chart [BASE] [QUOTE]*\n" +
	"Generate 5-minute interval line chart\n" +
	"Shows last hour of price movement\n" +
	"Example: `/chart ETH USDT`\n\n" +
	"🔹 */chartdaily [BASE] [QUOTE]*\n" +
	"Generate daily candlestick chart\n" +
	"Shows last 30 days of trading\n" +
	"Example: `/chartdaily BNB USDT`\n\n" +
	"🔹 */indicator [BASE] [QUOTE]*\n" +
	"Calculate Stochastic RSI indicator\n" +
	"Provides buy/sell signals\n" +
	"Example: `/indicator SOL USDT`\n\n" +
	"🔹 */stop*\n" +
	"Cancel all your pending jobs\n\n" +
	"💡 *Tips:*\n" +
	"• Default quote currency is USDT\n" +
	"• Commands are case-insensitive\n" +
	"• Most popular pairs: BTC, ETH, BNB, SOL, XRP"
