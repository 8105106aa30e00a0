package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stayhaven/internal/availability"
	"stayhaven/internal/events"
	"stayhaven/internal/metrics"
	"stayhaven/internal/model"
	"stayhaven/internal/navigation"
	"stayhaven/internal/selection"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) loadRooms(ctx context.Context, chatID int64, hotelID string) ([]model.Room, bool) {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	rooms, err := b.backend.GetHotelRooms(callCtx, hotelID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("hotel_id", hotelID).Msg("load rooms failed")
		b.reply(chatID, "Could not load rooms right now. Please try again.")
		return nil, false
	}
	return rooms, true
}

func (b *Bot) hotelName(userID int64, hotelID string) string {
	st := b.state.get(userID)
	st.lock()
	defer st.unlock()
	for _, h := range st.Hotels {
		if h.ID == hotelID {
			return h.Name
		}
	}
	return "Hotel"
}

func (b *Bot) showHotel(ctx context.Context, chatID, userID int64, hotelID string) {
	st := b.state.get(userID)
	st.lock()
	st.Nav.Navigate(navigation.RouteHotels + "/" + hotelID)
	c := st.Search.Criteria()
	st.unlock()

	rooms, ok := b.loadRooms(ctx, chatID, hotelID)
	if !ok {
		return
	}
	if len(rooms) == 0 {
		b.reply(chatID, "This hotel has no rooms listed.")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rooms)+1)
	for i := range rooms {
		r := &rooms[i]
		mark := "✅"
		if !availability.IsRoomAvailable(r, c.CheckIn, c.CheckOut) || !r.FitsGuests(c.Guests) {
			mark = "⛔"
		}
		label := fmt.Sprintf("%s %s · %s/night · up to %d", mark, r.Title, formatPrice(r.Price), r.MaxPeople)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("room:%s:%s", hotelID, r.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅ Hotels", "search:run")))
	b.replyWithKeyboard(chatID, b.hotelName(userID, hotelID)+": choose a room", tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (b *Bot) openRoom(ctx context.Context, chatID, userID int64, data string) {
	hotelID, roomID, ok := strings.Cut(data, ":")
	if !ok {
		return
	}
	rooms, ok := b.loadRooms(ctx, chatID, hotelID)
	if !ok {
		return
	}
	var room *model.Room
	for i := range rooms {
		if rooms[i].ID == roomID {
			room = &rooms[i]
			break
		}
	}
	if room == nil {
		b.reply(chatID, "This room is no longer listed.")
		return
	}

	st := b.state.get(userID)
	st.lock()
	c := st.Search.Criteria()
	sel := selection.New(hotelID, *room, c.CheckIn, c.CheckOut, b.timeout)
	st.Selection = sel
	st.unlock()

	b.renderSelection(chatID, sel, "")
}

func (b *Bot) currentSelection(chatID, userID int64) *selection.Selection {
	st := b.state.get(userID)
	st.lock()
	sel := st.Selection
	st.unlock()
	if sel == nil {
		b.reply(chatID, "Open a room first.")
	}
	return sel
}

func selectionKeyboard(sel *selection.Selection) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 6)
	row := make([]tgbotapi.InlineKeyboardButton, 0, 4)
	chosen := sel.Unit()
	for _, u := range sel.Units() {
		mark := "✅"
		if !u.Available {
			mark = "⛔"
		}
		if u.Number == chosen && sel.State() == selection.StateUnitChosen {
			mark = "👉"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %d", mark, u.Number),
			"unit:"+strconv.Itoa(u.Number),
		))
		if len(row) == 4 {
			rows = append(rows, row)
			row = make([]tgbotapi.InlineKeyboardButton, 0, 4)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if sel.State() == selection.StateUnitChosen {
		room := sel.Room()
		total := room.TotalPrice(sel.Nights())
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Reserve now · %s", formatPrice(total)), "book:confirm"),
			tgbotapi.NewInlineKeyboardButtonData("Clear", "book:clear"),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📅 Change dates", "book:dates"),
		tgbotapi.NewInlineKeyboardButtonData("⬅ Rooms", "hotel:"+sel.HotelID()),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func describeSelection(sel *selection.Selection) string {
	room := sel.Room()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s\n%s per night, up to %d guests\n", room.Title, room.Desc, formatPrice(room.Price), room.MaxPeople)
	in, out := sel.Dates()
	if in != nil && out != nil {
		fmt.Fprintf(&sb, "Stay: %s to %s (%d nights)\n", in.Format("Jan 2"), out.Format("Jan 2, 2006"), sel.Nights())
	} else {
		sb.WriteString("Stay: pick your dates\n")
	}
	switch sel.State() {
	case selection.StateUnitChosen:
		fmt.Fprintf(&sb, "Selected room number %d.", sel.Unit())
	case selection.StateBookingRequested:
		sb.WriteString("Sending your booking...")
	default:
		sb.WriteString("Select a room number.")
	}
	return sb.String()
}

func (b *Bot) renderSelection(chatID int64, sel *selection.Selection, note string) {
	text := describeSelection(sel)
	if note != "" {
		text = note + "\n\n" + text
	}
	b.replyWithKeyboard(chatID, text, selectionKeyboard(sel))
}

func (b *Bot) selectUnit(ctx context.Context, chatID, userID int64, raw string) {
	sel := b.currentSelection(chatID, userID)
	if sel == nil {
		return
	}
	number, err := strconv.Atoi(raw)
	if err != nil {
		return
	}
	sess := b.currentSession(ctx, userID)
	if err := sel.Select(sess, number); err != nil {
		if errors.Is(err, selection.ErrNotAuthenticated) {
			b.replyWithKeyboard(chatID, err.Error(), tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Login", "nav:"+navigation.RouteLogin),
			)))
			return
		}
		if errors.Is(err, selection.ErrDatesMissing) || errors.Is(err, selection.ErrEmptyStay) {
			b.replyWithKeyboard(chatID, err.Error(), tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📅 Pick dates", "book:dates"),
			)))
			return
		}
		b.reply(chatID, err.Error())
		return
	}
	b.renderSelection(chatID, sel, "")
}

func (b *Bot) handleBookAction(ctx context.Context, chatID, userID int64, action string) {
	sel := b.currentSelection(chatID, userID)
	if sel == nil {
		return
	}
	switch action {
	case "confirm":
		b.confirmBooking(ctx, chatID, userID, sel)
	case "clear":
		sel.Clear()
		b.renderSelection(chatID, sel, "")
	case "dates":
		st := b.state.get(userID)
		st.lock()
		st.Step = stepSelCheckIn
		st.PickIn = nil
		st.unlock()
		b.sendCalendar(chatID, calSelIn, b.today(), false, "Pick a check-in date.")
	}
}

func (b *Bot) applySelectionDates(ctx context.Context, chatID, userID int64, out *time.Time) {
	st := b.state.get(userID)
	st.lock()
	in := st.PickIn
	sel := st.Selection
	if in == nil || out == nil || sel == nil {
		st.unlock()
		b.reply(chatID, "Pick the check-in date first.")
		return
	}
	if err := st.Search.SetDateRange(in, out); err != nil {
		st.unlock()
		b.reply(chatID, rangeErrorText(err))
		return
	}
	c := st.Search.Criteria()
	st.Step = stepNone
	st.PickIn = nil
	st.unlock()

	chosen := sel.Unit()
	note := ""
	if sel.SetDates(c.CheckIn, c.CheckOut) {
		note = fmt.Sprintf("Room number %d is not available for the new dates. Please choose another.", chosen)
	}
	b.renderSelection(chatID, sel, note)
}

func (b *Bot) confirmBooking(ctx context.Context, chatID, userID int64, sel *selection.Selection) {
	sess := b.currentSession(ctx, userID)
	if !sess.IsAuthenticated() {
		b.reply(chatID, selection.ErrNotAuthenticated.Error())
		return
	}

	booking, err := sel.Confirm(ctx, sess, b.backend.ForToken(sess.Token))
	if err != nil {
		switch {
		case errors.Is(err, selection.ErrRequestInFlight):
			b.reply(chatID, "Your booking request is already on its way.")
		case errors.Is(err, selection.ErrNothingSelected):
			b.reply(chatID, err.Error())
		default:
			metrics.IncBookingRequest("rejected")
			zerolog.Ctx(ctx).Warn().Err(err).Msg("booking rejected")
			b.renderSelection(chatID, sel, "Booking failed: "+userFacing(err))
		}
		return
	}
	metrics.IncBookingRequest("accepted")

	st := b.state.get(userID)
	st.lock()
	st.Selection = nil
	d := st.Dashboard
	st.unlock()
	if d != nil {
		d.Replace(*booking)
	}
	b.publish(ctx, events.BookingCreated, userID, booking)

	b.replyWithKeyboard(chatID,
		fmt.Sprintf("Booked! %s, room %d, %s to %s.", sel.Room().Title, booking.RoomNumber,
			booking.DateStart.Format("Jan 2"), booking.DateEnd.Format("Jan 2, 2006")),
		tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("My bookings", "nav:"+navigation.RouteDashboard),
		)))
}
