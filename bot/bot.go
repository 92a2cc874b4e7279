package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"dns-price-bot/models"
	"dns-price-bot/scheduler"
	"dns-price-bot/services"
	"dns-price-bot/utils"
)

// Keyboard buttons
const (
	ButtonCheckNow  = "🔄 Проверить сейчас"
	ButtonStatus    = "📊 Статус подписки"
	ButtonStats     = "📈 Статистика"
	ButtonNightMode = "🌙 Ночной режим"
)

type Checker interface {
	CheckNow(ctx context.Context, requester int64) (*models.CycleReport, error)
}

type Registry interface {
	Add(ctx context.Context, id int64) (bool, error)
	IsSubscribed(ctx context.Context, id int64) (bool, error)
}

type QuietToggle interface {
	Enabled(ctx context.Context) (bool, error)
	Toggle(ctx context.Context, actor int64) (bool, error)
	Window() services.Window
}

type Stats interface {
	Generate(ctx context.Context) (*models.StatsReport, error)
}

// Deps are the operations the command surface maps to.
type Deps struct {
	Checker  Checker
	Registry Registry
	Quiet    QuietToggle
	Stats    Stats
}

// Bot answers chat commands. Each update is handled in its own goroutine
// since a manual check can take minutes.
type Bot struct {
	sender   Sender
	deps     Deps
	target   decimal.Decimal
	interval time.Duration
	logger   *utils.Logger
	wg       sync.WaitGroup
}

func New(sender Sender, deps Deps, target decimal.Decimal, interval time.Duration, logger *utils.Logger) *Bot {
	return &Bot{sender: sender, deps: deps, target: target, interval: interval, logger: logger}
}

// Run consumes updates until ctx is done or the channel closes, then waits for
// in-flight handlers.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if upd.Message == nil || upd.Message.From == nil {
				continue
			}
			msg := upd.Message
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleMessage(ctx, msg)
			}()
		}
	}
}

// HandleMessage dispatches one incoming message to its command.
func (b *Bot) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg)
		case "start_mail":
			b.handleSubscribe(ctx, msg)
		case "check_now":
			b.handleCheckNow(ctx, msg)
		case "stats":
			b.handleStats(ctx, msg)
		case "night_mode":
			b.handleNightMode(ctx, msg)
		default:
			b.reply(msg, "Неизвестная команда. Используйте /start")
		}
		return
	}

	switch msg.Text {
	case ButtonCheckNow:
		b.handleCheckNow(ctx, msg)
	case ButtonStatus:
		b.handleStatus(ctx, msg)
	case ButtonStats:
		b.handleStats(ctx, msg)
	case ButtonNightMode:
		b.handleNightMode(ctx, msg)
	}
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonCheckNow),
			tgbotapi.NewKeyboardButton(ButtonStatus),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonStats),
			tgbotapi.NewKeyboardButton(ButtonNightMode),
		),
	)
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyMarkup = mainKeyboard()
	if _, err := b.sender.Send(out); err != nil {
		b.logger.Error("Failed to reply to %d: %v", msg.Chat.ID, err)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	enabled, err := b.deps.Quiet.Enabled(ctx)
	if err != nil {
		b.logger.Warn("Failed to read quiet hours state: %v", err)
	}
	text := fmt.Sprintf("Привет, %s! 👋\n\n"+
		"Я бот для отслеживания видеокарт на DNS-Shop.\n"+
		"Я буду присылать уведомления о видеокартах дешевле %s BYN.\n\n"+
		"📊 Интервал проверки: %s\n"+
		"🌙 Ночной режим: %s\n\n"+
		"Доступные команды:\n"+
		"/start_mail - Подписаться на рассылку\n"+
		"/check_now - Принудительная проверка\n"+
		"/stats - Статистика отслеживания\n"+
		"/night_mode - Переключить ночной режим\n"+
		"Или используйте кнопки ниже ⬇️",
		msg.From.FirstName, b.target, services.FormatInterval(b.interval), onOffRu(enabled))
	b.reply(msg, text)
}

func (b *Bot) handleSubscribe(ctx context.Context, msg *tgbotapi.Message) {
	added, err := b.deps.Registry.Add(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error("Failed to subscribe %d: %v", msg.From.ID, err)
		b.reply(msg, "⚠️ Не удалось оформить подписку, попробуйте позже.")
		return
	}
	if !added {
		b.reply(msg, "ℹ️ Вы уже подписаны на рассылку.")
		return
	}
	b.reply(msg, fmt.Sprintf("✅ Вы успешно подписались на рассылку! Буду присылать уведомления о видеокартах дешевле %s BYN.", b.target))
}

func (b *Bot) handleCheckNow(ctx context.Context, msg *tgbotapi.Message) {
	user := msg.From.ID
	subscribed, err := b.deps.Registry.IsSubscribed(ctx, user)
	if err != nil {
		b.logger.Error("Failed to read subscribers: %v", err)
		b.reply(msg, "⚠️ Не удалось проверить подписку, попробуйте позже.")
		return
	}
	if !subscribed {
		b.reply(msg, "❌ Вы не подписаны на рассылку. Сначала используйте /start_mail")
		return
	}

	b.reply(msg, "🔍 Запускаю принудительную проверку... Это может занять несколько секунд.")
	report, err := b.deps.Checker.CheckNow(ctx, user)
	switch {
	case errors.Is(err, scheduler.ErrCycleInProgress):
		b.reply(msg, "⏳ Проверка уже выполняется, результаты придут автоматически.")
		return
	case err != nil:
		b.logger.Error("Manual check for %d failed: %v", user, err)
		b.reply(msg, "⚠️ Проверка не удалась, попробуйте позже.")
		return
	}

	var sent models.Summary
	for _, res := range report.Delivery.ForSubscriber(user) {
		if res.Err != nil {
			continue
		}
		if res.Kind == models.KindAdded {
			sent.Added++
		} else {
			sent.Removed++
		}
	}
	b.reply(msg, "✅ Проверка завершена:\n"+summaryLines(sent))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	report, err := b.deps.Stats.Generate(ctx)
	if err != nil {
		b.logger.Error("Failed to build stats: %v", err)
		b.reply(msg, "⚠️ Статистика сейчас недоступна.")
		return
	}
	b.reply(msg, services.FormatStats(report))
}

func (b *Bot) handleNightMode(ctx context.Context, msg *tgbotapi.Message) {
	enabled, err := b.deps.Quiet.Toggle(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error("Failed to toggle quiet hours: %v", err)
		b.reply(msg, "⚠️ Не удалось переключить ночной режим, попробуйте позже.")
		return
	}

	w := b.deps.Quiet.Window()
	var description string
	if enabled {
		description = fmt.Sprintf("🌙 Ночной режим ВКЛЮЧЕН\n\n"+
			"С %s до %s бот будет:\n"+
			"• Парсить сайт каждые %s\n"+
			"• Обновлять базу данных\n"+
			"• НЕ отправлять уведомления",
			services.FormatClock(w.Start), services.FormatClock(w.End), services.FormatInterval(b.interval))
	} else {
		description = "☀️ Ночной режим ВЫКЛЮЧЕН\n\n" +
			"Бот будет работать в обычном режиме и отправлять уведомления в любое время."
	}
	b.reply(msg, fmt.Sprintf("✅ Ночной режим %s!\n\n%s", onOffRu(enabled), description))
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	subscribed, err := b.deps.Registry.IsSubscribed(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error("Failed to read subscribers: %v", err)
		b.reply(msg, "⚠️ Не удалось проверить подписку, попробуйте позже.")
		return
	}
	if subscribed {
		b.reply(msg, fmt.Sprintf("✅ Вы подписаны на рассылку\n\n"+
			"Целевая цена: %s BYN\n"+
			"Следующая автоматическая проверка через %s", b.target, services.FormatInterval(b.interval)))
		return
	}
	b.reply(msg, fmt.Sprintf("❌ Вы не подписаны на рассылку\n\n"+
		"Целевая цена: %s BYN\n"+
		"Используйте /start_mail для подписки", b.target))
}

func onOffRu(b bool) string {
	if b {
		return "включен"
	}
	return "выключен"
}
