package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/fintracker/internal/model"
	"github.com/ivanoskov/fintracker/internal/service"
)

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func welcomeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("📝 Register", service.BtnRegister),
			button("🔑 Login", service.BtnLogin),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("ℹ️ About", service.BtnAbout),
		),
	)
}

// startKeyboard is the main menu of a registered user.
func startKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("💸 Add expense", service.AddButton(model.Expense)),
			button("💰 Add income", service.AddButton(model.Income)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("✏️ Edit expense", service.UpdateButton(model.Expense)),
			button("✏️ Edit income", service.UpdateButton(model.Income)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🗑 Delete expense", service.DeleteButton(model.Expense)),
			button("🗑 Delete income", service.DeleteButton(model.Income)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("📋 History", service.BtnHistory),
			button("📊 Report", service.BtnReport),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("ℹ️ About", service.BtnAbout),
		),
	)
}

func backToStartKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Main menu", service.BtnStart)),
	)
}

func historyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("💸 Expenses", service.ViewButton(model.Expense)),
			button("💰 Incomes", service.ViewButton(model.Income)),
		),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Main menu", service.BtnStart)),
	)
}

var periodTitles = map[service.Period]string{
	service.Daily:   "Today",
	service.Monthly: "This month",
	service.Yearly:  "This year",
}

func periodKeyboard(kind model.TransferKind) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, p := range service.Periods() {
		row = append(row, button(periodTitles[p], service.ViewPeriodButton(p, kind)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Back", service.BtnHistory)),
	)
}

func reportKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("📥 Get report", service.BtnGetReport)),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Main menu", service.BtnStart)),
	)
}

// keyboardFor returns the inline markup of kb; ok is false for KeyboardNone.
func keyboardFor(kb service.Keyboard) (markup tgbotapi.InlineKeyboardMarkup, ok bool) {
	switch kb {
	case service.KeyboardWelcome:
		return welcomeKeyboard(), true
	case service.KeyboardStart:
		return startKeyboard(), true
	case service.KeyboardBackToStart:
		return backToStartKeyboard(), true
	case service.KeyboardHistory:
		return historyKeyboard(), true
	case service.KeyboardViewExpense:
		return periodKeyboard(model.Expense), true
	case service.KeyboardViewIncome:
		return periodKeyboard(model.Income), true
	case service.KeyboardReport:
		return reportKeyboard(), true
	}
	return markup, false
}
