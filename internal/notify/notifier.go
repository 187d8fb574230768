package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"courtbook/internal/events"
	"courtbook/internal/metrics"
	"courtbook/internal/model"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// StatusChanger applies manager decisions coming from Telegram.
type StatusChanger interface {
	SetStatus(ctx context.Context, id int64, status model.BookingStatus, comment string) (*model.Booking, error)
}

const (
	queueSize   = 64
	sendTimeout = 30 * time.Second
	// above the long-poll timeout used by Run
	httpTimeout = 90 * time.Second
)

type delivery func(ctx context.Context) error

// Notifier alerts managers in Telegram about bookings and lets them confirm
// or reject new ones with inline buttons.
type Notifier struct {
	tg       telegramClient
	managers map[int64]struct{}
	limiter  *rate.Limiter
	queue    chan delivery
	logger   *zerolog.Logger
}

// New creates a notifier. Messages are throttled to stay under Telegram's
// per-bot limit. Event deliveries are queued and sent by Run.
func New(tg telegramClient, managers []int64, logger *zerolog.Logger) *Notifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	set := make(map[int64]struct{}, len(managers))
	for _, id := range managers {
		set[id] = struct{}{}
	}
	return &Notifier{
		tg:       tg,
		managers: set,
		limiter:  rate.NewLimiter(rate.Limit(25), 5),
		queue:    make(chan delivery, queueSize),
		logger:   logger,
	}
}

// NewFromToken connects to the Bot API.
func NewFromToken(token string, debug bool, managers []int64, logger *zerolog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: httpTimeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	api.Debug = debug
	return New(api, managers, logger), nil
}

// Subscribe wires the notifier to booking events. Handlers only queue the
// message, so publishers never wait on Telegram.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.BookingCreated, func(e events.Event) error {
		var b model.Booking
		if err := e.Decode(&b); err != nil {
			return err
		}
		return n.enqueue(e.Type, func(ctx context.Context) error {
			return n.BookingCreated(ctx, &b)
		})
	})
	bus.Subscribe(events.BookingStatusChanged, func(e events.Event) error {
		var p events.StatusChanged
		if err := e.Decode(&p); err != nil {
			return err
		}
		return n.enqueue(e.Type, func(ctx context.Context) error {
			return n.StatusChanged(ctx, &p.Booking, p.From)
		})
	})
}

func (n *Notifier) enqueue(kind string, d delivery) error {
	select {
	case n.queue <- d:
		return nil
	default:
		metrics.IncNotification("dropped")
		return fmt.Errorf("notify queue full, %s dropped", kind)
	}
}

func (n *Notifier) deliver(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-n.queue:
			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			if err := d(sendCtx); err != nil {
				n.logger.Warn().Err(err).Msg("manager notification failed")
			}
			cancel()
		}
	}
}

// BookingCreated sends the booking summary to every manager.
func (n *Notifier) BookingCreated(ctx context.Context, b *model.Booking) error {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", fmt.Sprintf("mgr:%s:%d", model.StatusConfirmed, b.ID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("mgr:%s:%d", model.StatusRejected, b.ID)),
		},
	}
	return n.broadcast(ctx, "Новая заявка\n"+FormatBooking(b), &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// StatusChanged tells managers that a booking moved between statuses.
func (n *Notifier) StatusChanged(ctx context.Context, b *model.Booking, from model.BookingStatus) error {
	text := fmt.Sprintf("Заявка %s: %s → %s\n%s, %s", shortRef(b.Reference), from.Label(), b.Status.Label(), b.CourtName, b.TimeLabel())
	if b.ManagerComment != "" {
		text += "\nКомментарий: " + b.ManagerComment
	}
	return n.broadcast(ctx, text, nil)
}

func (n *Notifier) broadcast(ctx context.Context, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	var failed int
	for chatID := range n.managers {
		if err := n.limiter.Wait(ctx); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		if _, err := n.tg.Send(msg); err != nil {
			failed++
			metrics.IncNotification("error")
			n.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to notify manager")
			continue
		}
		metrics.IncNotification("sent")
	}
	if failed > 0 {
		return fmt.Errorf("notify managers: %d of %d sends failed", failed, len(n.managers))
	}
	return nil
}

// Run sends queued notifications and handles manager button presses until
// ctx is done.
func (n *Notifier) Run(ctx context.Context, changer StatusChanger) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		n.deliver(ctx)
	}()
	defer wg.Wait()
	defer cancel()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := n.tg.GetUpdatesChan(u)
	defer n.tg.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if upd.CallbackQuery != nil {
				n.handleCallback(ctx, changer, upd.CallbackQuery)
			}
		}
	}
}

func (n *Notifier) handleCallback(ctx context.Context, changer StatusChanger, q *tgbotapi.CallbackQuery) {
	answer := func(text string) {
		if _, err := n.tg.Request(tgbotapi.NewCallback(q.ID, text)); err != nil {
			n.logger.Debug().Err(err).Msg("answer callback failed")
		}
	}

	if q.From == nil {
		return
	}
	if _, ok := n.managers[q.From.ID]; !ok {
		answer("Недостаточно прав")
		return
	}

	status, id, ok := parseDecision(q.Data)
	if !ok {
		answer("Неизвестная команда")
		return
	}

	b, err := changer.SetStatus(ctx, id, status, "")
	if err != nil {
		n.logger.Warn().Err(err).Int64("booking_id", id).Str("status", string(status)).Msg("manager decision failed")
		answer("Не удалось: " + err.Error())
		return
	}
	answer(b.Status.Label())

	if q.Message != nil {
		edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID,
			q.Message.Text+"\n\nСтатус: "+b.Status.Label())
		if _, err := n.tg.Send(edit); err != nil {
			n.logger.Debug().Err(err).Msg("edit manager message failed")
		}
	}
}

func parseDecision(data string) (model.BookingStatus, int64, bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "mgr" {
		return "", 0, false
	}
	status := model.BookingStatus(parts[1])
	if status != model.StatusConfirmed && status != model.StatusRejected {
		return "", 0, false
	}
	var id int64
	if _, err := fmt.Sscan(parts[2], &id); err != nil || id <= 0 {
		return "", 0, false
	}
	return status, id, true
}
