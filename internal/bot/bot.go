// Package bot renders the booking front-end as a Telegram chat: navigation,
// hotel search, room selection and the user dashboard.
package bot

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"stayhaven/internal/cancellation"
	"stayhaven/internal/dashboard"
	"stayhaven/internal/events"
	"stayhaven/internal/hotelapi"
	"stayhaven/internal/model"
	"stayhaven/internal/navigation"
	"stayhaven/internal/selection"
	"stayhaven/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Catalog serves hotel listings to anonymous visitors.
type Catalog interface {
	ListHotels(ctx context.Context, query url.Values) ([]model.Hotel, error)
	GetHotelRooms(ctx context.Context, hotelID string) ([]model.Room, error)
}

// UserAPI is the backend as seen by a logged-in user.
type UserAPI interface {
	dashboard.Service
	selection.Booker
}

// Backend combines the catalog with per-user access.
type Backend interface {
	Catalog
	ForToken(token string) UserAPI
}

// SearchHistory remembers the last submitted search per user.
type SearchHistory interface {
	SaveLastSearch(ctx context.Context, chatID int64, query url.Values) error
	LastSearch(ctx context.Context, chatID int64) (url.Values, error)
}

type httpBackend struct {
	*hotelapi.Client
}

func (h httpBackend) ForToken(token string) UserAPI {
	return h.Client.As(token)
}

// NewHTTPBackend adapts the hotel API client.
func NewHTTPBackend(c *hotelapi.Client) Backend {
	return httpBackend{Client: c}
}

// Deps are the collaborators of the bot.
type Deps struct {
	Backend    Backend
	Sessions   *session.Manager
	Navigation *navigation.Bar
	History    SearchHistory // optional
	Events     *events.EventBus
	Tracker    *cancellation.Tracker
	Timeout    time.Duration
	Workers    int
	Logger     *zerolog.Logger
}

// Bot dispatches Telegram updates.
type Bot struct {
	tg       telegramClient
	backend  Backend
	sessions *session.Manager
	nav      *navigation.Bar
	history  SearchHistory
	events   *events.EventBus
	tracker  *cancellation.Tracker
	timeout  time.Duration
	workers  int64
	state    *stateStore
	logger   *zerolog.Logger
	now      func() time.Time

	wg sync.WaitGroup
}

func New(token string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(&realTelegramClient{api: api}, deps)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, deps Deps) (*Bot, error) {
	return newBot(tg, deps)
}

func newBot(tg telegramClient, deps Deps) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if deps.Backend == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("backend and sessions are required")
	}
	if deps.Navigation == nil {
		deps.Navigation = navigation.NewBar(nil)
	}
	if deps.Events == nil {
		deps.Events = events.NewEventBus()
	}
	if deps.Tracker == nil {
		deps.Tracker = cancellation.NewTracker()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = cancellation.DefaultTimeout
	}
	if deps.Workers <= 0 {
		deps.Workers = 16
	}
	if deps.Logger == nil {
		l := zerolog.Nop()
		deps.Logger = &l
	}
	b := &Bot{
		tg:       tg,
		backend:  deps.Backend,
		sessions: deps.Sessions,
		nav:      deps.Navigation,
		history:  deps.History,
		events:   deps.Events,
		tracker:  deps.Tracker,
		timeout:  deps.Timeout,
		workers:  int64(deps.Workers),
		state:    newStateStore(),
		logger:   deps.Logger,
		now:      time.Now,
	}
	b.events.Subscribe(events.SessionLogout, func(e events.Event) error {
		b.state.reset(e.ChatID)
		return nil
	})
	return b, nil
}

// Start polls updates until ctx is done. Updates run concurrently, bounded by
// the worker count, so a slow backend call never blocks other chats or the
// rest of the same chat.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("Bot authorized")

	sem := semaphore.NewWeighted(b.workers)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)

			b.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer b.wg.Done()
				defer sem.Release(1)
				b.handleUpdate(updateCtx, &update)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("Update handler panicked")
		}
	}()

	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("Handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil && update.Message.From != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Msg("Handling message")
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID
	userID := msg.From.ID

	// Commands interrupt any active dialog.
	if msg.IsCommand() {
		b.clearStep(userID)
		switch msg.Command() {
		case "start", "menu":
			b.navigate(ctx, chatID, userID, navigation.RouteHome)
		case "search", "hotels":
			b.navigate(ctx, chatID, userID, navigation.RouteHotels)
		case "dashboard", "bookings":
			b.navigate(ctx, chatID, userID, navigation.RouteDashboard)
		case "profile":
			b.openProfileTab(ctx, chatID, userID)
		case "export":
			b.exportBookings(ctx, chatID, userID)
		case "login":
			b.navigate(ctx, chatID, userID, navigation.RouteLogin)
		case "register", "signup":
			b.navigate(ctx, chatID, userID, navigation.RouteRegister)
		case "logout":
			b.logout(ctx, chatID, userID)
		case "help":
			b.reply(chatID, helpText)
		case "cancel":
			b.reply(chatID, "Cancelled.")
			b.sendMenu(ctx, chatID, userID)
		default:
			b.reply(chatID, "Unknown command. "+helpText)
		}
		return
	}

	st := b.state.get(userID)
	st.lock()
	step := st.Step
	st.unlock()

	switch step {
	case stepSearchCity:
		b.handleCityInput(ctx, chatID, userID, text)
	case stepSearchGuests:
		b.handleGuestsInput(ctx, chatID, userID, text)
	case stepLoginUser:
		b.handleLoginUser(chatID, userID, text)
	case stepLoginPassword:
		b.handleLoginPassword(ctx, msg, text)
	case stepProfileField:
		b.handleProfileFieldInput(ctx, chatID, userID, text)
	case stepSearchCheckIn, stepSearchCheckOut, stepSelCheckIn, stepSelCheckOut:
		b.handleTypedDate(ctx, chatID, userID, step, text)
	default:
		b.sendMenu(ctx, chatID, userID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}
	data := cq.Data
	_ = b.answerCallback(cq.ID, "")
	if data == "noop" {
		return
	}

	userID := cq.From.ID
	chatID := cq.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, "nav:"):
		b.navigate(ctx, chatID, userID, strings.TrimPrefix(data, "nav:"))
	case data == "menu:toggle":
		b.toggleMenu(ctx, chatID, userID)
	case data == "logout":
		b.logout(ctx, chatID, userID)
	case strings.HasPrefix(data, "calnav:"):
		b.handleCalendarNav(ctx, chatID, userID, data)
	case strings.HasPrefix(data, "cal:"):
		b.handleCalendarPick(ctx, chatID, userID, data)
	case strings.HasPrefix(data, "search:"):
		b.handleSearchAction(ctx, chatID, userID, strings.TrimPrefix(data, "search:"))
	case strings.HasPrefix(data, "hotel:"):
		b.showHotel(ctx, chatID, userID, strings.TrimPrefix(data, "hotel:"))
	case strings.HasPrefix(data, "room:"):
		b.openRoom(ctx, chatID, userID, strings.TrimPrefix(data, "room:"))
	case strings.HasPrefix(data, "unit:"):
		b.selectUnit(ctx, chatID, userID, strings.TrimPrefix(data, "unit:"))
	case strings.HasPrefix(data, "book:"):
		b.handleBookAction(ctx, chatID, userID, strings.TrimPrefix(data, "book:"))
	case strings.HasPrefix(data, "tab:"):
		b.switchTab(ctx, chatID, userID, dashboard.Tab(strings.TrimPrefix(data, "tab:")))
	case strings.HasPrefix(data, "cx:"):
		b.requestCancel(ctx, chatID, userID, strings.TrimPrefix(data, "cx:"))
	case data == "cxy":
		b.confirmCancel(ctx, chatID, userID)
	case data == "cxn":
		b.dismissCancel(ctx, chatID, userID)
	case data == "export":
		b.exportBookings(ctx, chatID, userID)
	case strings.HasPrefix(data, "prof:"):
		b.handleProfileAction(ctx, chatID, userID, strings.TrimPrefix(data, "prof:"))
	case strings.HasPrefix(data, "pf:"):
		b.askProfileField(chatID, userID, strings.TrimPrefix(data, "pf:"))
	}
}

const helpText = "Commands: /search, /dashboard, /profile, /export, /login, /logout, /menu, /cancel"

// currentSession re-derives the session for every update.
func (b *Bot) currentSession(ctx context.Context, userID int64) *session.Session {
	s, err := b.sessions.Current(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("session lookup failed")
	}
	return s
}

func (b *Bot) clearStep(userID int64) {
	st := b.state.get(userID)
	st.lock()
	st.Step = stepNone
	st.PickIn = nil
	st.unlock()
}

func (b *Bot) setStep(userID int64, step dialogStep) {
	st := b.state.get(userID)
	st.lock()
	st.Step = step
	st.unlock()
}

func (b *Bot) publish(ctx context.Context, eventType string, chatID int64, payload any) {
	if err := b.events.PublishJSON(eventType, chatID, payload); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", eventType).Msg("event handler failed")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	_, _ = b.tg.Send(msg)
}

func (b *Bot) answerCallback(id, text string) error {
	if id == "" {
		return nil
	}
	_, err := b.tg.Request(tgbotapi.NewCallback(id, text))
	return err
}
