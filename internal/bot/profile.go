package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stayhaven/internal/dashboard"
	"stayhaven/internal/events"
	"stayhaven/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var fieldLabels = map[string]string{
	"username": "Username",
	"email":    "Email",
	"country":  "Country",
	"city":     "City",
	"phone":    "Phone",
	"img":      "Photo URL",
}

func profileValues(p model.ProfileFields) map[string]string {
	return map[string]string{
		"username": p.Username,
		"email":    p.Email,
		"country":  p.Country,
		"city":     p.City,
		"phone":    p.Phone,
		"img":      p.Img,
	}
}

func formatProfile(title string, p model.ProfileFields) string {
	values := profileValues(p)
	lines := []string{title}
	for _, name := range dashboard.ProfileFieldNames {
		v := values[name]
		if v == "" {
			v = "-"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", fieldLabels[name], v))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) openProfileTab(ctx context.Context, chatID, userID int64) {
	b.switchTab(ctx, chatID, userID, dashboard.TabProfile)
}

func (b *Bot) renderProfile(chatID int64, d *dashboard.Dashboard) {
	if !d.Editing() {
		b.replyWithKeyboard(chatID, formatProfile("Your profile", d.Profile().Profile()), tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✏️ Edit profile", "prof:edit")),
			tabsRow(dashboard.TabProfile),
		))
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(dashboard.ProfileFieldNames)/2+2)
	row := make([]tgbotapi.InlineKeyboardButton, 0, 2)
	for _, name := range dashboard.ProfileFieldNames {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✏️ "+fieldLabels[name], "pf:"+name))
		if len(row) == 2 {
			rows = append(rows, row)
			row = make([]tgbotapi.InlineKeyboardButton, 0, 2)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💾 Save", "prof:save"),
		tgbotapi.NewInlineKeyboardButtonData("✖ Cancel", "prof:cancel"),
	))
	b.replyWithKeyboard(chatID, formatProfile("Editing profile", d.Draft()), tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (b *Bot) handleProfileAction(ctx context.Context, chatID, userID int64, action string) {
	d, ok := b.ensureDashboard(ctx, chatID, userID)
	if !ok {
		return
	}
	d.SetTab(dashboard.TabProfile)

	switch action {
	case "edit":
		d.StartEdit()
	case "cancel":
		d.CancelEdit()
		b.clearStep(userID)
	case "save":
		b.clearStep(userID)
		user, err := d.SaveProfile(ctx)
		if err != nil {
			b.reply(chatID, profileErrorText(err))
			break
		}
		if err := b.sessions.UpdateUser(ctx, userID, user); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to refresh session user")
		}
		b.publish(ctx, events.ProfileUpdated, userID, user)
		b.reply(chatID, "Profile saved.")
	}
	b.renderProfile(chatID, d)
}

func profileErrorText(err error) string {
	switch {
	case errors.Is(err, dashboard.ErrRequiredField), errors.Is(err, dashboard.ErrInvalidEmail):
		return "Please fix: " + err.Error()
	case errors.Is(err, dashboard.ErrSaveInFlight):
		return "Saving, please wait..."
	case errors.Is(err, dashboard.ErrNotEditing):
		return "Press Edit profile first."
	}
	return "Could not save your profile: " + userFacing(err)
}

func (b *Bot) askProfileField(chatID, userID int64, name string) {
	d := b.currentDashboard(chatID, userID)
	if d == nil {
		return
	}
	label, ok := fieldLabels[name]
	if !ok || !d.Editing() {
		return
	}
	st := b.state.get(userID)
	st.lock()
	st.Step = stepProfileField
	st.ProfileField = name
	st.unlock()
	b.reply(chatID, fmt.Sprintf("Send the new %s:", strings.ToLower(label)))
}

func (b *Bot) handleProfileFieldInput(_ context.Context, chatID, userID int64, text string) {
	d := b.currentDashboard(chatID, userID)
	if d == nil {
		return
	}
	st := b.state.get(userID)
	st.lock()
	name := st.ProfileField
	st.unlock()

	if err := d.SetField(name, text); err != nil {
		b.reply(chatID, profileErrorText(err)+" Send another value or press Cancel.")
		return
	}
	st.lock()
	st.Step = stepNone
	st.ProfileField = ""
	st.unlock()
	b.renderProfile(chatID, d)
}
