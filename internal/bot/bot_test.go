package bot

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"stayhaven/internal/cancellation"
	"stayhaven/internal/dashboard"
	"stayhaven/internal/events"
	"stayhaven/internal/hotelapi"
	"stayhaven/internal/model"
	"stayhaven/internal/navigation"
	"stayhaven/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeTelegram) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "stayhaven_test_bot"}
}

func (f *fakeTelegram) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTelegram) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func (f *fakeTelegram) anyText(substr string) bool {
	for _, m := range f.messages() {
		if strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

func buttonData(m tgbotapi.MessageConfig) []string {
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				out = append(out, *btn.CallbackData)
			}
		}
	}
	return out
}

type fakeBackend struct {
	mu        sync.Mutex
	hotels    []model.Hotel
	rooms     map[string][]model.Room
	bookings  []model.Booking
	cancelErr error
	createErr error
	lastQuery url.Values
	created   []model.BookingRequest
	cancelled []string
}

func (f *fakeBackend) ListHotels(_ context.Context, q url.Values) ([]model.Hotel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	return f.hotels, nil
}

func (f *fakeBackend) GetHotelRooms(_ context.Context, hotelID string) ([]model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rooms, ok := f.rooms[hotelID]
	if !ok {
		return nil, hotelapi.ErrNotFound
	}
	return rooms, nil
}

func (f *fakeBackend) ForToken(string) UserAPI { return f }

func (f *fakeBackend) GetUserBookings(context.Context, string) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Booking, len(f.bookings))
	copy(out, f.bookings)
	return out, nil
}

func (f *fakeBackend) CancelBooking(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return f.cancelErr
}

func (f *fakeBackend) UpdateUser(_ context.Context, userID string, p model.ProfileFields) (*model.User, error) {
	u := model.User{ID: userID}.WithProfile(p)
	return &u, nil
}

func (f *fakeBackend) CreateBooking(_ context.Context, req model.BookingRequest) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &model.Booking{
		ID: "new", UserID: req.UserID, HotelID: req.HotelID, RoomID: req.RoomID, RoomNumber: req.RoomNumber,
		DateStart: req.DateStart, DateEnd: req.DateEnd, TotalPrice: req.TotalPrice, Status: model.StatusConfirmed,
	}, nil
}

type fakeAuth struct{}

func (fakeAuth) Login(_ context.Context, username, password string) (*hotelapi.AuthResult, error) {
	if password != "pw" {
		return nil, &hotelapi.APIError{Status: 401, Message: "wrong credentials"}
	}
	return &hotelapi.AuthResult{
		Token: "tok",
		User:  model.User{ID: "u1", Username: username, Email: "ann@example.com", Country: "FR", City: "Paris"},
	}, nil
}

const uid int64 = 100

type harness struct {
	bot     *Bot
	tg      *fakeTelegram
	backend *fakeBackend
	bus     *events.EventBus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tg := &fakeTelegram{}
	backend := &fakeBackend{rooms: map[string][]model.Room{}}
	bus := events.NewEventBus()
	b, err := NewWithTelegramClient(tg, Deps{
		Backend:  backend,
		Sessions: session.NewManager(session.NewMemoryStore(), fakeAuth{}, time.Hour),
		Navigation: navigation.NewBar([]navigation.Link{
			{Label: "Home", Path: "/"},
			{Label: "Hotels", Path: "/hotels", MatchPrefix: true},
			{Label: "About", Path: "/about"},
		}),
		Events:  bus,
		Tracker: cancellation.NewTracker(),
		Timeout: time.Second,
	})
	require.NoError(t, err)
	return &harness{bot: b, tg: tg, backend: backend, bus: bus}
}

func (h *harness) text(text string) {
	msg := &tgbotapi.Message{MessageID: 1, From: &tgbotapi.User{ID: uid}, Chat: &tgbotapi.Chat{ID: uid}, Text: text}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	h.bot.handleUpdate(context.Background(), &tgbotapi.Update{Message: msg})
}

func (h *harness) press(data string) {
	h.bot.handleUpdate(context.Background(), &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: uid},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: uid}},
		Data:    data,
	}})
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.text("/login")
	h.text("ann")
	h.text("pw")
	require.True(t, h.tg.anyText("Welcome, ann!"))
}

func TestNewWithTelegramClient_RequiresDeps(t *testing.T) {
	_, err := NewWithTelegramClient(nil, Deps{})
	assert.Error(t, err)
	_, err = NewWithTelegramClient(&fakeTelegram{}, Deps{})
	assert.Error(t, err)
}

func TestMenuToggle(t *testing.T) {
	h := newHarness(t)

	h.text("/start")
	assert.Equal(t, []string{"menu:toggle"}, buttonData(h.tg.last(t)))

	h.press("menu:toggle")
	data := buttonData(h.tg.last(t))
	assert.Contains(t, data, "nav:/hotels")
	assert.Contains(t, data, "nav:/login")
	assert.Contains(t, data, "nav:/register")

	h.press("nav:/about")
	assert.Equal(t, []string{"menu:toggle"}, buttonData(h.tg.last(t)), "route change closes the menu")
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.text("/login")
	h.text("ann")
	h.text("nope")

	assert.Equal(t, "Wrong username or password.", h.tg.last(t).Text)
	h.tg.mu.Lock()
	require.NotEmpty(t, h.tg.requests)
	_, deleted := h.tg.requests[len(h.tg.requests)-1].(tgbotapi.DeleteMessageConfig)
	h.tg.mu.Unlock()
	assert.True(t, deleted, "password message is deleted")
}

func TestDashboardRequiresLogin(t *testing.T) {
	h := newHarness(t)
	h.text("/dashboard")
	assert.Contains(t, buttonData(h.tg.last(t)), "nav:/login")
}

func upcomingBooking() model.Booking {
	start := model.Day(time.Now()).AddDate(0, 0, 20)
	return model.Booking{
		ID: "b1", UserID: "u1", HotelID: "h1", RoomID: "r1", RoomNumber: 101,
		DateStart: start, DateEnd: start.AddDate(0, 0, 2), TotalPrice: 300, Status: model.StatusConfirmed,
		Hotel: &model.HotelSummary{Name: "Seaside"},
	}
}

func TestDashboardCancelSuccess(t *testing.T) {
	h := newHarness(t)
	h.backend.bookings = []model.Booking{upcomingBooking()}
	var published []events.Event
	h.bus.Subscribe(events.BookingCancelled, func(e events.Event) error {
		published = append(published, e)
		return nil
	})

	h.login(t)
	h.text("/dashboard")
	assert.Contains(t, h.tg.last(t).Text, "Seaside")
	assert.Contains(t, buttonData(h.tg.last(t)), "cx:b1")

	h.press("cx:b1")
	assert.Contains(t, h.tg.last(t).Text, "Cancel your stay at Seaside")
	assert.Equal(t, []string{"cxy", "cxn"}, buttonData(h.tg.last(t)))

	h.press("cxy")
	assert.True(t, h.tg.anyText("has been cancelled"))
	assert.Equal(t, []string{"b1"}, h.backend.cancelled)
	assert.NotContains(t, buttonData(h.tg.last(t)), "cx:b1")
	require.Len(t, published, 1)

	st := h.bot.state.get(uid)
	bk, ok := st.Dashboard.Booking("b1")
	require.True(t, ok)
	assert.Equal(t, model.StatusCancelled, bk.Status)
}

func TestDashboardCancelFailureKeepsBooking(t *testing.T) {
	h := newHarness(t)
	h.backend.bookings = []model.Booking{upcomingBooking()}
	h.backend.cancelErr = errors.New("boom")

	h.login(t)
	h.text("/dashboard")
	h.press("cx:b1")
	h.press("cxy")

	assert.True(t, h.tg.anyText("Your booking is unchanged"))
	assert.Contains(t, buttonData(h.tg.last(t)), "cx:b1")
	bk, _ := h.bot.state.get(uid).Dashboard.Booking("b1")
	assert.Equal(t, model.StatusConfirmed, bk.Status)
}

func TestSearchFlow(t *testing.T) {
	h := newHarness(t)
	h.backend.hotels = []model.Hotel{{ID: "h1", Name: "Seaside", City: "Paris", CheapestPrice: 90}}

	h.text("/search")
	assert.Contains(t, h.tg.last(t).Text, "Where are you going?")

	h.text("Paris")
	assert.Contains(t, buttonData(h.tg.last(t)), "cal:in:skip")

	h.press("cal:in:skip")
	assert.Equal(t, "How many guests?", h.tg.last(t).Text)

	h.text("-1")
	assert.Contains(t, h.tg.last(t).Text, "still 1")

	h.text("2")
	assert.Equal(t, "Paris", h.backend.lastQuery.Get("city"))
	assert.Equal(t, "2", h.backend.lastQuery.Get("guests"))
	assert.Contains(t, buttonData(h.tg.last(t)), "hotel:h1")
}

func TestSearchRejectsReversedRange(t *testing.T) {
	h := newHarness(t)
	h.text("/search")
	h.text("Rome")

	in := model.Day(time.Now()).AddDate(0, 0, 5)
	h.press("cal:in:" + in.Format("2006-01-02"))
	assert.Contains(t, h.tg.last(t).Text, "check-out")

	h.text(in.AddDate(0, 0, -2).Format("2006-01-02"))
	assert.Equal(t, "Check-out can't be before check-in.", h.tg.last(t).Text)

	h.text(in.AddDate(0, 0, 3).Format("2006-01-02"))
	assert.Equal(t, "How many guests?", h.tg.last(t).Text)
}

func seedRoom(h *harness, blocked ...time.Time) {
	h.backend.rooms["h1"] = []model.Room{{
		ID: "r1", Title: "Double", Price: 100, MaxPeople: 2,
		RoomNumbers: []model.RoomUnit{{Number: 101}, {Number: 102, UnavailableDates: blocked}},
	}}
}

func setDates(t *testing.T, h *harness, in, out time.Time) {
	t.Helper()
	st := h.bot.state.get(uid)
	st.lock()
	defer st.unlock()
	require.NoError(t, st.Search.SetDateRange(&in, &out))
}

func TestSelectUnitRequiresLogin(t *testing.T) {
	h := newHarness(t)
	seedRoom(h)

	h.press("room:h1:r1")
	h.press("unit:101")
	assert.Equal(t, "please login to book a room", h.tg.last(t).Text)
}

func TestBookingFlow(t *testing.T) {
	h := newHarness(t)
	in := model.Day(time.Now()).AddDate(0, 0, 10)
	seedRoom(h, in.AddDate(0, 0, 1))
	h.login(t)
	setDates(t, h, in, in.AddDate(0, 0, 3))

	h.press("room:h1:r1")
	data := buttonData(h.tg.last(t))
	assert.Contains(t, data, "unit:101")
	assert.Contains(t, data, "unit:102")
	assert.NotContains(t, data, "book:confirm")

	h.press("unit:102")
	assert.Equal(t, "this room is not available for the selected dates", h.tg.last(t).Text)

	h.press("unit:101")
	assert.Contains(t, buttonData(h.tg.last(t)), "book:confirm")

	h.press("book:confirm")
	require.Len(t, h.backend.created, 1)
	req := h.backend.created[0]
	assert.Equal(t, 101, req.RoomNumber)
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, 300.0, req.TotalPrice)
	assert.Contains(t, h.tg.last(t).Text, "Booked!")
}

func TestBookingRejectedReturnsToSelection(t *testing.T) {
	h := newHarness(t)
	in := model.Day(time.Now()).AddDate(0, 0, 10)
	seedRoom(h)
	h.backend.createErr = &hotelapi.APIError{Status: 409}
	h.login(t)
	setDates(t, h, in, in.AddDate(0, 0, 2))

	h.press("room:h1:r1")
	h.press("unit:101")
	h.press("book:confirm")

	last := h.tg.last(t)
	assert.Contains(t, last.Text, "Booking failed: that room was just taken")
	assert.NotContains(t, buttonData(last), "book:confirm")
}

func TestProfileEdit(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.text("/profile")
	assert.Contains(t, h.tg.last(t).Text, "City: Paris")

	h.press("prof:edit")
	h.press("pf:email")
	h.text("broken")
	assert.Contains(t, h.tg.last(t).Text, "Please fix")

	h.text("ann@stayhaven.test")
	h.press("pf:city")
	h.text("Lyon")
	h.press("prof:save")

	assert.True(t, h.tg.anyText("Profile saved."))
	sess, err := h.bot.sessions.Current(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "Lyon", sess.User.City)
	assert.Equal(t, "ann@stayhaven.test", sess.User.Email)
}

func TestLogoutResetsState(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.text("/dashboard")
	require.NotNil(t, h.bot.state.get(uid).Dashboard)

	h.text("/logout")
	assert.True(t, h.tg.anyText("You are logged out."))
	assert.Nil(t, h.bot.state.get(uid).Dashboard)

	h.press("tab:" + string(dashboard.TabBookings))
	assert.Contains(t, buttonData(h.tg.last(t)), "nav:/login")
}

func TestExportSendsDocument(t *testing.T) {
	h := newHarness(t)
	h.backend.bookings = []model.Booking{upcomingBooking()}
	h.login(t)

	h.text("/export")
	h.tg.mu.Lock()
	defer h.tg.mu.Unlock()
	doc, ok := h.tg.sent[len(h.tg.sent)-1].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, "Your bookings", doc.Caption)
}
