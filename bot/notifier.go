package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dns-price-bot/models"
)

const timestampLayout = "15:04 02.01.2006"

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers change notifications as photo messages
type TelegramNotifier struct {
	sender   Sender
	location *time.Location
}

func NewTelegramNotifier(sender Sender, location *time.Location) *TelegramNotifier {
	if location == nil {
		location = time.Local
	}
	return &TelegramNotifier{sender: sender, location: location}
}

func (n *TelegramNotifier) NotifyItem(ctx context.Context, subscriberID int64, note models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	caption := ItemCaption(note, n.location)
	if note.ImageRef == "" {
		_, err := n.sender.Send(tgbotapi.NewMessage(subscriberID, caption))
		return err
	}
	photo := tgbotapi.NewPhoto(subscriberID, tgbotapi.FileURL(note.ImageRef))
	photo.Caption = caption
	_, err := n.sender.Send(photo)
	return err
}

func (n *TelegramNotifier) NotifySummary(ctx context.Context, subscriberID int64, s models.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := "📢 Автоматическое обновление:\n" + summaryLines(s)
	_, err := n.sender.Send(tgbotapi.NewMessage(subscriberID, text))
	return err
}

// ItemCaption renders the text of one added or removed item.
func ItemCaption(note models.Notification, loc *time.Location) string {
	at := note.At
	if loc != nil {
		at = at.In(loc)
	}
	if note.Kind == models.KindRemoved {
		return fmt.Sprintf("❌ ТОВАР УДАЛЕН\n🎮 %s\n💰 Цена: %s\n⏰ Удален: %s",
			note.Title, note.PriceDisplay, at.Format(timestampLayout))
	}
	return fmt.Sprintf("🆕 НОВЫЙ ТОВАР\n🎮 %s\n💰 Цена: %s\n⏰ Добавлен: %s",
		note.Title, note.PriceDisplay, at.Format(timestampLayout))
}

func summaryLines(s models.Summary) string {
	var lines []string
	if s.Added > 0 {
		lines = append(lines, fmt.Sprintf("🆕 Новых: %d", s.Added))
	}
	if s.Removed > 0 {
		lines = append(lines, fmt.Sprintf("❌ Удаленных: %d", s.Removed))
	}
	if len(lines) == 0 {
		lines = append(lines, "ℹ️ Изменений не обнаружено")
	}
	return strings.Join(lines, "\n")
}
