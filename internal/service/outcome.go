package service

import "github.com/ivanoskov/fintracker/internal/model"

// MessageKey names a message template; the adapter renders it.
type MessageKey string

const (
	MsgWelcome  MessageKey = "welcome"
	MsgGreeting MessageKey = "greeting"
	MsgAbout    MessageKey = "about"
	MsgHelp     MessageKey = "help"
	MsgCanceled MessageKey = "canceled"
	MsgUseMenu  MessageKey = "use_menu"

	MsgAskUsername         MessageKey = "ask_username"
	MsgUsernameTaken       MessageKey = "username_taken"
	MsgAskEmail            MessageKey = "ask_email"
	MsgInvalidEmail        MessageKey = "invalid_email"
	MsgAskPassword         MessageKey = "ask_password"
	MsgRegistered          MessageKey = "registered"
	MsgRegistrationFailed  MessageKey = "registration_failed"
	MsgAskLoginUsername    MessageKey = "ask_login_username"
	MsgAskLoginPassword    MessageKey = "ask_login_password"
	MsgLoggedIn            MessageKey = "logged_in"
	MsgLoginFailed         MessageKey = "login_failed"
	MsgAskTransferDetails  MessageKey = "ask_transfer_details"
	MsgAskUpdateDetails    MessageKey = "ask_update_details"
	MsgAskDeleteID         MessageKey = "ask_delete_id"
	MsgTransferCreated     MessageKey = "transfer_created"
	MsgTransferUpdated     MessageKey = "transfer_updated"
	MsgTransferDeleted     MessageKey = "transfer_deleted"
	MsgHistoryMenu         MessageKey = "history_menu"
	MsgPeriodMenu          MessageKey = "period_menu"
	MsgTransferList        MessageKey = "transfer_list"
	MsgTransferListEmpty   MessageKey = "transfer_list_empty"
	MsgReportMenu          MessageKey = "report_menu"
	MsgReportReady         MessageKey = "report_ready"
	MsgReportEmpty         MessageKey = "report_empty"
	MsgEmptyInput          MessageKey = "empty_input"
	MsgMalformedInput      MessageKey = "malformed_input"
	MsgInvalidAmount       MessageKey = "invalid_amount"
	MsgAmountExceedsLimit  MessageKey = "amount_exceeds_limit"
	MsgNotFound            MessageKey = "not_found"
	MsgInsufficientBalance MessageKey = "insufficient_balance"
	MsgUnregistered        MessageKey = "unregistered"
	MsgLoginRequired       MessageKey = "login_required"
	MsgBackendFailure      MessageKey = "backend_failure"
	MsgIncompleteContext   MessageKey = "incomplete_context"
)

// Keyboard names the menu attached to a message.
type Keyboard string

const (
	KeyboardNone        Keyboard = ""
	KeyboardWelcome     Keyboard = "welcome"
	KeyboardStart       Keyboard = "start"
	KeyboardBackToStart Keyboard = "back_to_start"
	KeyboardHistory     Keyboard = "history"
	KeyboardViewExpense Keyboard = "view_expense"
	KeyboardViewIncome  Keyboard = "view_income"
	KeyboardReport      Keyboard = "report"
)

func periodKeyboard(kind model.TransferKind) Keyboard {
	if kind == model.Income {
		return KeyboardViewIncome
	}
	return KeyboardViewExpense
}

// Params names the template parameters.
const (
	ParamUsername    = "username"
	ParamKind        = "kind"
	ParamAmount      = "amount"
	ParamDescription = "description"
	ParamID          = "id"
	ParamMax         = "max"
	ParamPeriod      = "period"
	ParamTotal       = "total"
	ParamCount       = "count"
	ParamReason      = "reason"
	ParamIncome      = "income"
	ParamExpenses    = "expenses"
	ParamBalance     = "balance"
)

// Attachment is a file sent along with the message.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Outcome is everything the adapter needs to answer one event.
type Outcome struct {
	Message  MessageKey
	Params   map[string]string
	Keyboard Keyboard
	// Terminal is set when the event ended a flow and the user is back to idle.
	Terminal bool
	// DeleteInput asks the adapter to delete the user's message, e.g. a password.
	DeleteInput bool
	// Transfers is the listing shown by transfer_list.
	Transfers   []model.Transfer
	Attachments []Attachment
}

func prompt(msg MessageKey, params map[string]string) Outcome {
	return Outcome{Message: msg, Params: params, Keyboard: KeyboardBackToStart}
}

func terminal(msg MessageKey, params map[string]string) Outcome {
	return Outcome{Message: msg, Params: params, Keyboard: KeyboardBackToStart, Terminal: true}
}

func menu(msg MessageKey, kb Keyboard, params map[string]string) Outcome {
	return Outcome{Message: msg, Params: params, Keyboard: kb, Terminal: true}
}
