// Package notify implements the Telegram signal:enter subscriber:
// notification-only, no inbound command handling.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"scanner-go/internal/eventbus"
	"scanner-go/internal/model"
)

// Notifier pushes a formatted message to one chat for every
// signal:enter event it observes on the bus.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// New authorizes a bot client. Returns an error if the token is
// rejected; callers may choose to run without notifications rather
// than fail the process.
func New(token, chatID string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot auth: %w", err)
	}
	log.Printf("✅ Telegram bot authorized: %s", bot.Self.UserName)

	var id int64
	fmt.Sscanf(chatID, "%d", &id)

	return &Notifier{bot: bot, chatID: id}, nil
}

// Attach subscribes the notifier to signal:enter events on bus. The
// returned unsubscribe func is rarely needed but kept for symmetry
// with the rest of the event-bus API.
func (n *Notifier) Attach(bus *eventbus.Bus) func() {
	return bus.Subscribe(eventbus.SignalEnter, func(payload any) {
		tick, ok := payload.(model.Tick)
		if !ok {
			return
		}
		n.send(tick)
	})
}

func (n *Notifier) send(tick model.Tick) {
	msg := tgbotapi.NewMessage(n.chatID, formatTickMessage(tick))
	msg.ParseMode = "HTML"
	if _, err := n.bot.Send(msg); err != nil {
		log.Printf("⚠️  [Notify] failed to send signal for %s: %v", tick.MarketID, err)
		return
	}
	log.Printf("📲 [Notify] signal sent for %s", tick.MarketID)
}

func formatTickMessage(t model.Tick) string {
	emoji := "🟢"
	if t.Rec.Side == model.SideDown {
		emoji = "🔴"
	}

	entry := t.Prices.Yes
	if t.Rec.Side == model.SideDown {
		entry = t.Prices.No
	}

	edge := t.Edges.EdgeUp
	if t.Rec.Side == model.SideDown {
		edge = t.Edges.EdgeDown
	}

	return fmt.Sprintf(`%s <b>%s</b>

%s

🎯 <b>Entry:</b> <code>%.4f</code>
📐 <b>Edge:</b> %.2f%%
💪 <b>Strength:</b> %s (%s)
🧠 <b>Confidence:</b> %.0f (%s)
💰 <b>Kelly bet:</b> %.2f%%
⏱️ <b>Settles in:</b> %.0f min
`,
		emoji, t.Signal,
		escapeHTML(t.Question),
		entry,
		edge*100,
		t.Rec.Strength, t.Rec.Phase,
		t.Confidence.Score, t.Confidence.Tier,
		t.Kelly.BetPct*100,
		t.SettlementMinutesLeft,
	)
}

func escapeHTML(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '&':
			out = append(out, []rune("&amp;")...)
		case '<':
			out = append(out, []rune("&lt;")...)
		case '>':
			out = append(out, []rune("&gt;")...)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
