package bot

import (
	"fmt"
	"strings"

	"github.com/ivanoskov/fintracker/internal/service"
)

// Шаблоны сообщений. Placeholders in braces are filled from Outcome.Params.
var templates = map[service.MessageKey]string{
	service.MsgWelcome:  "👋 Welcome to the finance tracker!\nRegister or log in to start tracking your expenses and incomes.",
	service.MsgGreeting: "👋 Hello, {username}! What would you like to do?",
	service.MsgAbout: "ℹ️ This bot keeps track of your expenses and incomes.\n" +
		"Add, edit and delete transfers, browse the history by day, month or year, " +
		"and download a CSV report with charts.",
	service.MsgHelp: "Commands:\n/start - main menu\n/cancel - abandon the current action\n/help - this message",
	service.MsgCanceled: "❌ Action canceled.",
	service.MsgUseMenu:  "Please use the menu buttons.",

	service.MsgAskUsername:        "Enter a username:",
	service.MsgUsernameTaken:      "⚠️ Username {username} is already taken. Try another one:",
	service.MsgAskEmail:           "Enter your email:",
	service.MsgInvalidEmail:       "⚠️ That does not look like an email address. Try again:",
	service.MsgAskPassword:        "Enter a password:",
	service.MsgRegistered:         "✅ Registration complete. Welcome, {username}!",
	service.MsgRegistrationFailed: "❌ Registration failed: {reason}",
	service.MsgAskLoginUsername:   "Enter your username:",
	service.MsgAskLoginPassword:   "Enter your password:",
	service.MsgLoggedIn:           "✅ Logged in as {username}.",
	service.MsgLoginFailed:        "❌ Login failed: {reason}",

	service.MsgAskTransferDetails: "Enter the {kind} amount and description, e.g. \"150.50 groceries\":",
	service.MsgAskUpdateDetails:   "Enter the {kind} id, the new amount and description, e.g. \"12 150.50 groceries\":",
	service.MsgAskDeleteID:        "Enter the id of the {kind} to delete:",
	service.MsgTransferCreated:    "✅ Added {kind}: {amount} {description}",
	service.MsgTransferUpdated:    "✅ Updated {kind} #{id}: {amount} {description}",
	service.MsgTransferDeleted:    "🗑 Deleted {kind} #{id}.",

	service.MsgHistoryMenu:       "📋 What do you want to see?",
	service.MsgPeriodMenu:        "Choose the period of your {kind}s:",
	service.MsgTransferList:      "📋 Your {kind}s ({period}), {count} in total, sum {total}:",
	service.MsgTransferListEmpty: "No {kind}s for this period.",
	service.MsgReportMenu:        "📊 The report contains every transfer as CSV plus balance charts.",
	service.MsgReportReady: "📊 Report: {count} transfers\nIncome: {income}\nExpenses: {expenses}\nBalance: {balance}",
	service.MsgReportEmpty: "📊 Nothing to report yet.",

	service.MsgEmptyInput:          "⚠️ The message is empty. Try again:",
	service.MsgMalformedInput:      "⚠️ Could not read that. Check the format and try again:",
	service.MsgInvalidAmount:       "⚠️ The amount must be a positive number. Try again:",
	service.MsgAmountExceedsLimit:  "⚠️ The amount may not exceed {max}. Try again:",
	service.MsgNotFound:            "❌ Nothing with that id among your transfers.",
	service.MsgInsufficientBalance: "❌ Insufficient balance for this operation.",
	service.MsgUnregistered:        "You are not registered yet. Please register first.",
	service.MsgLoginRequired:       "Please log in first.",
	service.MsgBackendFailure:      "❌ Something went wrong. Please try again later.",
	service.MsgIncompleteContext:   "❌ Something went wrong. Let's start over.",
}

// renderText fills the template of out and appends the transfer listing.
func renderText(out service.Outcome) string {
	tmpl, ok := templates[out.Message]
	if !ok {
		tmpl = string(out.Message)
	}

	pairs := make([]string, 0, 2*len(out.Params))
	for k, v := range out.Params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	text := strings.NewReplacer(pairs...).Replace(tmpl)

	if len(out.Transfers) == 0 {
		return text
	}
	var sb strings.Builder
	sb.WriteString(text)
	for _, t := range out.Transfers {
		fmt.Fprintf(&sb, "\n#%d  %s  %s", t.ID, t.Created.Format("02.01.2006 15:04"), t.Amount.StringFixed(2))
		if t.Description != "" {
			sb.WriteString("  " + t.Description)
		}
	}
	return sb.String()
}
