package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stayhaven/internal/model"
	"stayhaven/internal/search"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) startSearch(ctx context.Context, chatID, userID int64) {
	st := b.state.get(userID)
	st.lock()
	c := st.Search.Criteria()
	st.unlock()

	if c.City == "" && !c.HasDates() && b.history != nil {
		if q, err := b.history.LastSearch(ctx, userID); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to load last search")
		} else if q != nil {
			restored := search.ParseQuery(q)
			st.lock()
			st.Search = search.FromCriteria(restored)
			c = st.Search.Criteria()
			st.unlock()
		}
	}

	if c.City == "" && !c.HasDates() {
		b.askCity(chatID, userID)
		return
	}
	b.replyWithKeyboard(chatID, "Your search: "+describeCriteria(c), tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔎 Search", "search:run"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ New search", "search:new"),
		),
	))
}

func (b *Bot) askCity(chatID, userID int64) {
	b.setStep(userID, stepSearchCity)
	b.replyWithKeyboard(chatID, "Where are you going? Type a city, or skip to see every destination.",
		tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Anywhere", "search:anywhere"),
		)))
}

func (b *Bot) handleSearchAction(ctx context.Context, chatID, userID int64, action string) {
	switch {
	case action == "run":
		b.runSearch(ctx, chatID, userID)
	case action == "new":
		st := b.state.get(userID)
		st.lock()
		st.Search = search.NewBuilder()
		st.unlock()
		b.askCity(chatID, userID)
	case action == "anywhere":
		b.handleCityInput(ctx, chatID, userID, "")
	case strings.HasPrefix(action, "guests:"):
		b.handleGuestsInput(ctx, chatID, userID, strings.TrimPrefix(action, "guests:"))
	}
}

func (b *Bot) handleCityInput(_ context.Context, chatID, userID int64, text string) {
	st := b.state.get(userID)
	st.lock()
	st.Search.SetCity(text)
	st.Step = stepSearchCheckIn
	st.PickIn = nil
	st.unlock()
	b.sendCalendar(chatID, calSearchIn, b.today(), true, "Pick a check-in date, or type one (e.g. 2025-06-10).")
}

func (b *Bot) sendCalendar(chatID int64, mode string, minDay time.Time, allowSkip bool, text string) {
	kb := GenerateCalendarKeyboard(mode, minDay.Year(), minDay.Month(), minDay, allowSkip)
	b.replyWithKeyboard(chatID, text, kb)
}

func (b *Bot) today() time.Time {
	return model.Day(b.now())
}

// minDayFor is the first selectable day of a calendar in mode.
func (b *Bot) minDayFor(userID int64, mode string) time.Time {
	today := b.today()
	if mode != calSearchOut && mode != calSelOut {
		return today
	}
	st := b.state.get(userID)
	st.lock()
	defer st.unlock()
	if st.PickIn == nil {
		return today
	}
	return st.PickIn.AddDate(0, 0, 1)
}

func (b *Bot) handleCalendarNav(_ context.Context, chatID, userID int64, data string) {
	parts := strings.SplitN(strings.TrimPrefix(data, "calnav:"), ":", 2)
	if len(parts) != 2 {
		return
	}
	month, err := time.Parse("2006-01", parts[1])
	if err != nil {
		return
	}
	minDay := b.minDayFor(userID, parts[0])
	kb := GenerateCalendarKeyboard(parts[0], month.Year(), month.Month(), minDay, parts[0] == calSearchIn)
	b.replyWithKeyboard(chatID, "Pick a date:", kb)
}

func (b *Bot) handleCalendarPick(ctx context.Context, chatID, userID int64, data string) {
	mode, value, ok := parseCalendarData(data)
	if !ok {
		return
	}
	if value == "skip" {
		b.applyPickedDate(ctx, chatID, userID, mode, nil)
		return
	}
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		b.reply(chatID, "Invalid date.")
		return
	}
	b.applyPickedDate(ctx, chatID, userID, mode, &d)
}

func (b *Bot) handleTypedDate(ctx context.Context, chatID, userID int64, step dialogStep, text string) {
	d, err := search.ParseDate(text)
	if err != nil {
		b.reply(chatID, "Could not read that date. Try 2025-06-10 or 10.06.2025.")
		return
	}
	mode := map[dialogStep]string{
		stepSearchCheckIn:  calSearchIn,
		stepSearchCheckOut: calSearchOut,
		stepSelCheckIn:     calSelIn,
		stepSelCheckOut:    calSelOut,
	}[step]
	b.applyPickedDate(ctx, chatID, userID, mode, &d)
}

func (b *Bot) applyPickedDate(ctx context.Context, chatID, userID int64, mode string, day *time.Time) {
	if day != nil && model.Day(*day).Before(b.today()) {
		b.reply(chatID, search.ErrPastDate.Error())
		return
	}

	st := b.state.get(userID)
	switch mode {
	case calSearchIn, calSelIn:
		if day == nil {
			if mode == calSelIn {
				return
			}
			st.lock()
			err := st.Search.SetDateRange(nil, nil)
			st.Step = stepSearchGuests
			st.unlock()
			if err != nil {
				b.reply(chatID, err.Error())
				return
			}
			b.askGuests(chatID)
			return
		}
		in := model.Day(*day)
		next := stepSearchCheckOut
		outMode := calSearchOut
		if mode == calSelIn {
			next, outMode = stepSelCheckOut, calSelOut
		}
		st.lock()
		st.PickIn = &in
		st.Step = next
		st.unlock()
		b.sendCalendar(chatID, outMode, in.AddDate(0, 0, 1), false, "Check-in "+in.Format("Jan 2")+". Now pick the check-out date.")

	case calSearchOut:
		st.lock()
		in := st.PickIn
		if in == nil {
			st.unlock()
			b.reply(chatID, "Pick the check-in date first.")
			return
		}
		err := st.Search.SetDateRange(in, day)
		if err == nil {
			st.Step = stepSearchGuests
			st.PickIn = nil
		}
		st.unlock()
		if err != nil {
			b.reply(chatID, rangeErrorText(err))
			return
		}
		b.askGuests(chatID)

	case calSelOut:
		b.applySelectionDates(ctx, chatID, userID, day)
	}
}

func rangeErrorText(err error) string {
	switch {
	case errors.Is(err, search.ErrRangeOrder):
		return "Check-out can't be before check-in."
	case errors.Is(err, search.ErrPastDate):
		return "Dates in the past can't be booked."
	}
	return err.Error()
}

func (b *Bot) askGuests(chatID int64) {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 4)
	for n := 1; n <= 4; n++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(n), fmt.Sprintf("search:guests:%d", n)))
	}
	b.replyWithKeyboard(chatID, "How many guests?", tgbotapi.NewInlineKeyboardMarkup(row))
}

func (b *Bot) handleGuestsInput(ctx context.Context, chatID, userID int64, text string) {
	st := b.state.get(userID)
	st.lock()
	err := st.Search.SetGuests(text)
	guests := st.Search.Criteria().Guests
	if err == nil {
		st.Step = stepNone
	}
	st.unlock()

	if err != nil {
		b.reply(chatID, fmt.Sprintf("Guests must be a whole number of at least 1 (still %d).", guests))
		return
	}
	b.runSearch(ctx, chatID, userID)
}

func (b *Bot) runSearch(ctx context.Context, chatID, userID int64) {
	st := b.state.get(userID)
	st.lock()
	query := st.Search.Submit()
	c := st.Search.Criteria()
	st.unlock()

	if b.history != nil {
		if err := b.history.SaveLastSearch(ctx, userID, query); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to save last search")
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	hotels, err := b.backend.ListHotels(callCtx, query)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list hotels failed")
		b.replyWithKeyboard(chatID, "Could not load hotels right now. Please try again.",
			tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("↻ Retry", "search:run"),
			)))
		return
	}

	st.lock()
	st.Hotels = hotels
	st.unlock()

	if len(hotels) == 0 {
		b.replyWithKeyboard(chatID, "No hotels match "+describeCriteria(c)+".",
			tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✏️ New search", "search:new"),
			)))
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(hotels)+1)
	for _, h := range hotels {
		label := fmt.Sprintf("%s · %s · from %s", h.Name, h.City, formatPrice(h.CheapestPrice))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, "hotel:"+h.ID)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✏️ New search", "search:new")))
	b.replyWithKeyboard(chatID, fmt.Sprintf("%d hotels for %s:", len(hotels), describeCriteria(c)),
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func describeCriteria(c search.Criteria) string {
	parts := make([]string, 0, 3)
	if c.City != "" {
		parts = append(parts, c.City)
	} else {
		parts = append(parts, "anywhere")
	}
	if c.HasDates() {
		parts = append(parts, fmt.Sprintf("%s to %s", c.CheckIn.Format("Jan 2"), c.CheckOut.Format("Jan 2")))
	} else {
		parts = append(parts, "any dates")
	}
	parts = append(parts, fmt.Sprintf("%d guest(s)", c.Guests))
	return strings.Join(parts, ", ")
}

func formatPrice(p float64) string {
	return fmt.Sprintf("$%.0f", p)
}
