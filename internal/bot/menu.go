package bot

import (
	"context"
	"fmt"
	"strings"

	"stayhaven/internal/navigation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var staticPages = map[string]string{
	navigation.RouteHome: "Welcome to StayHaven. Find a hotel, pick your room and manage your stays right here.",
	"/pricing":           "No booking fees. You pay the nightly rate shown on each room.",
	"/about":             "StayHaven connects travellers with independent hotels.",
}

// renderMenuKeyboard turns the navigation menu into inline buttons. A closed
// menu shows only the toggle.
func renderMenuKeyboard(m navigation.Menu) tgbotapi.InlineKeyboardMarkup {
	if !m.MenuOpen {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("☰ Menu", "menu:toggle")),
		)
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m.Primary)/2+3)
	row := make([]tgbotapi.InlineKeyboardButton, 0, 2)
	for _, it := range m.Primary {
		row = append(row, menuButton(it))
		if len(row) == 2 {
			rows = append(rows, row)
			row = make([]tgbotapi.InlineKeyboardButton, 0, 2)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	account := make([]tgbotapi.InlineKeyboardButton, 0, len(m.Account))
	for _, it := range m.Account {
		account = append(account, menuButton(it))
	}
	if len(account) > 0 {
		rows = append(rows, account)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("✕ Close", "menu:toggle"),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func menuButton(it navigation.Item) tgbotapi.InlineKeyboardButton {
	label := it.Label
	if it.Active {
		label = "• " + label
	}
	if it.Action && it.Path == navigation.RouteLogout {
		return tgbotapi.NewInlineKeyboardButtonData(label, "logout")
	}
	return tgbotapi.NewInlineKeyboardButtonData(label, "nav:"+it.Path)
}

func (b *Bot) menuFor(ctx context.Context, userID int64) navigation.Menu {
	authed := b.currentSession(ctx, userID).IsAuthenticated()
	st := b.state.get(userID)
	st.lock()
	nav := st.Nav
	st.unlock()
	return b.nav.Render(nav, authed)
}

func (b *Bot) sendMenu(ctx context.Context, chatID, userID int64) {
	b.replyWithKeyboard(chatID, "Where to next?", renderMenuKeyboard(b.menuFor(ctx, userID)))
}

func (b *Bot) toggleMenu(ctx context.Context, chatID, userID int64) {
	st := b.state.get(userID)
	st.lock()
	st.Nav.ToggleMenu()
	st.unlock()
	b.sendMenu(ctx, chatID, userID)
}

// navigate moves the user to route and renders the view behind it.
func (b *Bot) navigate(ctx context.Context, chatID, userID int64, route string) {
	st := b.state.get(userID)
	st.lock()
	st.Nav.Navigate(route)
	route = st.Nav.Route
	st.unlock()

	switch {
	case route == navigation.RouteHotels || strings.HasPrefix(route, navigation.RouteHotels+"/"):
		b.startSearch(ctx, chatID, userID)
	case route == navigation.RouteDashboard:
		b.openDashboard(ctx, chatID, userID)
	case route == navigation.RouteLogin:
		b.startLogin(ctx, chatID, userID)
	case route == navigation.RouteRegister:
		b.replyWithKeyboard(chatID,
			"Create your account on the StayHaven website, then come back and use /login.",
			renderMenuKeyboard(b.menuFor(ctx, userID)))
	default:
		text, ok := staticPages[route]
		if !ok {
			text = b.linkTitle(route)
		}
		b.replyWithKeyboard(chatID, text, renderMenuKeyboard(b.menuFor(ctx, userID)))
	}
}

func (b *Bot) linkTitle(route string) string {
	for _, l := range b.nav.Links() {
		if l.Path == route {
			return l.Label
		}
	}
	return fmt.Sprintf("Nothing at %s yet.", route)
}
