package service

import (
	"strings"

	"github.com/ivanoskov/fintracker/internal/model"
)

// EventType distinguishes the three inputs a user can send.
type EventType int

const (
	EventCommand EventType = iota
	EventButton
	EventText
)

func (t EventType) String() string {
	switch t {
	case EventCommand:
		return "command"
	case EventButton:
		return "button"
	case EventText:
		return "text"
	}
	return "unknown"
}

// Event is one inbound update: a slash command, an inline button press, or free text.
type Event struct {
	Type EventType
	// Name is the command without the slash, or the button callback data.
	Name string
	// Text is the message text of text and command events.
	Text string
}

// Command builds a command event from the raw message text, e.g. "/start" or
// "/start@finbot". Text keeps the message verbatim: in a data-collecting state
// anything but start and cancel is an answer, not a command.
func Command(text string) Event {
	name := text
	if fields := strings.Fields(text); len(fields) > 0 {
		name = fields[0]
	}
	name, _, _ = strings.Cut(name, "@")
	return Event{Type: EventCommand, Name: strings.ToLower(strings.TrimPrefix(name, "/")), Text: text}
}

func Button(data string) Event {
	return Event{Type: EventButton, Name: data}
}

func Text(text string) Event {
	return Event{Type: EventText, Text: text}
}

// Callback data of the inline buttons.
const (
	BtnStart     = "start"
	BtnCancel    = "cancel"
	BtnRegister  = "register"
	BtnLogin     = "login"
	BtnAbout     = "about"
	BtnReport    = "report"
	BtnGetReport = "get_report"
	BtnHistory   = "view_history"
)

// Slash commands.
const (
	CmdStart  = "start"
	CmdCancel = "cancel"
	CmdHelp   = "help"
)

// Period is the time window of a transfer listing.
type Period string

const (
	Daily   Period = "daily"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// Periods lists the windows offered by the view keyboard.
func Periods() []Period { return []Period{Daily, Monthly, Yearly} }

func AddButton(kind model.TransferKind) string    { return "add_" + string(kind) }
func UpdateButton(kind model.TransferKind) string { return "update_" + string(kind) }
func DeleteButton(kind model.TransferKind) string { return "delete_" + string(kind) }
func ViewButton(kind model.TransferKind) string   { return "view_" + string(kind) + "s" }

func ViewPeriodButton(p Period, kind model.TransferKind) string {
	return "view_" + string(p) + "_" + string(kind) + "s"
}

type buttonAction int

const (
	actionUnknown buttonAction = iota
	actionAdd
	actionUpdate
	actionDelete
	actionViewMenu
	actionViewPeriod
)

// parseTransferButton decodes add_/update_/edit_/delete_/view_ buttons.
func parseTransferButton(data string) (buttonAction, model.TransferKind, Period) {
	verb, rest, ok := strings.Cut(data, "_")
	if !ok {
		return actionUnknown, "", ""
	}
	switch verb {
	case "add", "update", "edit", "delete":
		kind, err := model.ParseTransferKind(rest)
		if err != nil {
			return actionUnknown, "", ""
		}
		switch verb {
		case "add":
			return actionAdd, kind, ""
		case "delete":
			return actionDelete, kind, ""
		}
		return actionUpdate, kind, ""
	case "view":
		if kind, err := model.ParseTransferKind(rest); err == nil {
			return actionViewMenu, kind, ""
		}
		p, kindRaw, ok := strings.Cut(rest, "_")
		if !ok {
			return actionUnknown, "", ""
		}
		kind, err := model.ParseTransferKind(kindRaw)
		if err != nil {
			return actionUnknown, "", ""
		}
		switch Period(p) {
		case Daily, Monthly, Yearly:
			return actionViewPeriod, kind, Period(p)
		}
	}
	return actionUnknown, "", ""
}
