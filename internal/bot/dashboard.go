package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"stayhaven/internal/cancellation"
	"stayhaven/internal/dashboard"
	"stayhaven/internal/events"
	"stayhaven/internal/hotelapi"
	"stayhaven/internal/model"
	"stayhaven/internal/navigation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// userFacing turns a backend error into a short explanation.
func userFacing(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "the service did not answer in time, please try again."
	case errors.Is(err, hotelapi.ErrUnauthorized):
		return "your session has expired, please /login again."
	case errors.Is(err, hotelapi.ErrConflict):
		return "that room was just taken for these dates."
	case errors.Is(err, hotelapi.ErrNotFound):
		return "it no longer exists."
	}
	var apiErr *hotelapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "something went wrong, please try again."
}

// ensureDashboard returns the dashboard of a logged-in user, creating it when
// the session changed.
func (b *Bot) ensureDashboard(ctx context.Context, chatID, userID int64) (*dashboard.Dashboard, bool) {
	sess := b.currentSession(ctx, userID)
	if !sess.IsAuthenticated() {
		b.replyWithKeyboard(chatID, "Please login to see your bookings.", tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Login", "nav:"+navigation.RouteLogin),
				tgbotapi.NewInlineKeyboardButtonData("Sign Up", "nav:"+navigation.RouteRegister),
			),
		))
		return nil, false
	}

	st := b.state.get(userID)
	st.lock()
	defer st.unlock()
	if st.Dashboard == nil || st.DashboardToken != sess.Token {
		st.Dashboard = dashboard.New(sess.User, b.backend.ForToken(sess.Token), b.tracker, b.timeout)
		st.DashboardToken = sess.Token
	}
	return st.Dashboard, true
}

func (b *Bot) openDashboard(ctx context.Context, chatID, userID int64) {
	d, ok := b.ensureDashboard(ctx, chatID, userID)
	if !ok {
		return
	}
	if err := d.Load(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("load bookings failed")
		if !d.Loaded() {
			b.replyWithKeyboard(chatID, "Could not load your bookings: "+userFacing(err),
				tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("↻ Retry", "nav:"+navigation.RouteDashboard),
				)))
			return
		}
		b.reply(chatID, "Could not refresh your bookings, showing the last known list.")
	}
	b.renderDashboard(chatID, d)
}

func (b *Bot) renderDashboard(chatID int64, d *dashboard.Dashboard) {
	if d.Tab() == dashboard.TabProfile {
		b.renderProfile(chatID, d)
		return
	}
	b.renderBookings(chatID, d)
}

func tabsRow(active dashboard.Tab) []tgbotapi.InlineKeyboardButton {
	bookings, profile := "Bookings", "Profile"
	if active == dashboard.TabProfile {
		profile = "• " + profile
	} else {
		bookings = "• " + bookings
	}
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(bookings, "tab:"+string(dashboard.TabBookings)),
		tgbotapi.NewInlineKeyboardButtonData(profile, "tab:"+string(dashboard.TabProfile)),
	)
}

func formatBooking(bk model.Booking) string {
	return fmt.Sprintf("• %s, %s #%d\n  %s to %s, %d nights · %s · %s",
		bk.HotelName(), bk.RoomTitle(), bk.RoomNumber,
		bk.DateStart.Format("Jan 2"), bk.DateEnd.Format("Jan 2, 2006"),
		bk.Nights(), formatPrice(bk.TotalPrice), bk.Status)
}

func (b *Bot) renderBookings(chatID int64, d *dashboard.Dashboard) {
	bookings := d.Bookings()
	if len(bookings) == 0 {
		b.replyWithKeyboard(chatID, "You have no bookings yet.", tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Find a hotel", "nav:"+navigation.RouteHotels)),
			tabsRow(dashboard.TabBookings),
		))
		return
	}

	lines := make([]string, 0, len(bookings)+1)
	lines = append(lines, "Your bookings:")
	for _, bk := range bookings {
		lines = append(lines, formatBooking(bk))
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(bookings)+2)
	for _, id := range d.Cancellable(b.now()) {
		bk, ok := d.Booking(id)
		if !ok {
			continue
		}
		label := fmt.Sprintf("Cancel %s %s", bk.HotelName(), bk.DateStart.Format("Jan 2"))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, "cx:"+id)))
	}
	rows = append(rows,
		tabsRow(dashboard.TabBookings),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬇️ Export", "export")),
	)
	b.replyWithKeyboard(chatID, strings.Join(lines, "\n"), tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (b *Bot) currentDashboard(chatID, userID int64) *dashboard.Dashboard {
	st := b.state.get(userID)
	st.lock()
	d := st.Dashboard
	st.unlock()
	if d == nil {
		b.reply(chatID, "Open /dashboard first.")
	}
	return d
}

func (b *Bot) switchTab(ctx context.Context, chatID, userID int64, tab dashboard.Tab) {
	d, ok := b.ensureDashboard(ctx, chatID, userID)
	if !ok {
		return
	}
	d.SetTab(tab)
	if tab == dashboard.TabBookings && !d.Loaded() {
		b.openDashboard(ctx, chatID, userID)
		return
	}
	b.renderDashboard(chatID, d)
}

func (b *Bot) requestCancel(_ context.Context, chatID, userID int64, bookingID string) {
	d := b.currentDashboard(chatID, userID)
	if d == nil {
		return
	}
	if err := d.RequestCancel(bookingID, b.now()); err != nil {
		switch {
		case errors.Is(err, dashboard.ErrUnknownBooking):
			b.reply(chatID, "Booking not found.")
		case errors.Is(err, cancellation.ErrInFlight):
			b.reply(chatID, "A cancellation for this booking is already in progress.")
		default:
			b.reply(chatID, "This booking can no longer be cancelled.")
		}
		return
	}

	bk, _ := d.Booking(bookingID)
	b.replyWithKeyboard(chatID,
		fmt.Sprintf("Cancel your stay at %s, %s to %s? This cannot be undone.",
			bk.HotelName(), bk.DateStart.Format("Jan 2"), bk.DateEnd.Format("Jan 2, 2006")),
		tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, cancel", "cxy"),
			tgbotapi.NewInlineKeyboardButtonData("Keep booking", "cxn"),
		)))
}

func (b *Bot) confirmCancel(ctx context.Context, chatID, userID int64) {
	d := b.currentDashboard(chatID, userID)
	if d == nil {
		return
	}
	if _, _, busy := d.CancelDialog(); busy {
		b.reply(chatID, "Cancelling, please wait...")
		return
	}

	bk, err := d.ConfirmCancel(ctx)
	if err != nil {
		switch {
		case errors.Is(err, cancellation.ErrNoDialog):
			b.reply(chatID, "Nothing to confirm.")
		case errors.Is(err, cancellation.ErrInFlight):
			b.reply(chatID, "Cancelling, please wait...")
		default:
			zerolog.Ctx(ctx).Warn().Err(err).Msg("cancel booking failed")
			b.reply(chatID, "Could not cancel: "+userFacing(err)+" Your booking is unchanged.")
			b.renderBookings(chatID, d)
		}
		return
	}

	b.publish(ctx, events.BookingCancelled, userID, bk)
	b.reply(chatID, fmt.Sprintf("Your stay at %s has been cancelled.", bk.HotelName()))
	b.renderBookings(chatID, d)
}

func (b *Bot) dismissCancel(_ context.Context, chatID, userID int64) {
	d := b.currentDashboard(chatID, userID)
	if d == nil {
		return
	}
	d.DismissCancel()
	b.renderBookings(chatID, d)
}

func (b *Bot) exportBookings(ctx context.Context, chatID, userID int64) {
	d, ok := b.ensureDashboard(ctx, chatID, userID)
	if !ok {
		return
	}
	if !d.Loaded() {
		if err := d.Load(ctx); err != nil {
			b.reply(chatID, "Could not load your bookings: "+userFacing(err))
			return
		}
	}

	var buf bytes.Buffer
	if err := d.Export(&buf); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("export failed")
		b.reply(chatID, "Could not build the export.")
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "bookings.xlsx", Bytes: buf.Bytes()})
	doc.Caption = "Your bookings"
	if _, err := b.tg.Send(doc); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("send export failed")
	}
}
