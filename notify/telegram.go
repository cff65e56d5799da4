package notify

import (
	"fmt"
	"os"
	"strings"

	"review-scraper/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Outcome of a run as reported to the chat
type Outcome int

const (
	Succeeded Outcome = iota
	Partial
	Failed
)

// Summary describes a finished run
type Summary struct {
	Company   string
	Window    models.DateWindow
	Reviews   int
	Pages     int
	Output    string
	SheetName string
	Outcome   Outcome
	Err       error
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts run summaries to a Telegram chat
type Notifier struct {
	bot    sender
	chatID int64
}

// NewNotifier authorizes the bot token from TELEGRAM_BOT_TOKEN
func NewNotifier(chatID int64) (*Notifier, error) {
	botToken := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if botToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}
	log.Debugf("Authorized on account %s", bot.Self.UserName)

	return &Notifier{bot: bot, chatID: chatID}, nil
}

// Notify sends one message describing the run
func (n *Notifier) Notify(s Summary) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatSummary(s))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	log.Infof("Run summary sent to chat %d", n.chatID)
	return nil
}

// FormatSummary renders the plain-text message for a run
func FormatSummary(s Summary) string {
	var b strings.Builder

	switch s.Outcome {
	case Succeeded:
		b.WriteString("✅ Scrape finished")
	case Partial:
		b.WriteString("⚠️ Scrape stopped early")
	default:
		b.WriteString("❌ Scrape failed")
	}
	fmt.Fprintf(&b, ": %s\n", s.Company)

	fmt.Fprintf(&b, "Window: %s\n", s.Window)
	fmt.Fprintf(&b, "Reviews: %d\n", s.Reviews)
	fmt.Fprintf(&b, "Pages: %d\n", s.Pages)
	if s.Output != "" {
		fmt.Fprintf(&b, "Output: %s\n", s.Output)
	}
	if s.SheetName != "" {
		fmt.Fprintf(&b, "Sheet: %s\n", s.SheetName)
	}
	if s.Err != nil {
		fmt.Fprintf(&b, "Error: %v\n", s.Err)
	}

	return strings.TrimRight(b.String(), "\n")
}
