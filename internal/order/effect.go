package order

import "orderbot/internal/session"

// Msg identifies a user-facing message. The dispatcher localizes it; the core
// never carries rendered text.
type Msg string

const (
	MsgChooseRegion        Msg = "choose_region"
	MsgMainMenu            Msg = "main_menu"
	MsgChooseProduct       Msg = "choose_product"
	MsgUnknownProduct      Msg = "unknown_product"
	MsgAskQuantity         Msg = "ask_quantity"
	MsgInvalidQuantity     Msg = "invalid_quantity"
	MsgChoosePrice         Msg = "choose_price"
	MsgInvalidPrice        Msg = "invalid_price"
	MsgOrderSummary        Msg = "order_summary"
	MsgDepositSplit        Msg = "deposit_split"
	MsgPaymentInstructions Msg = "payment_instructions"
	MsgProofReceived       Msg = "proof_received"
	MsgOrderConfirmed      Msg = "order_confirmed"
	MsgStartOver           Msg = "start_over"
	MsgUseMenu             Msg = "use_menu"
	MsgBtnShop             Msg = "btn_shop"

	// Dispatcher-rendered messages outside the transition table.
	MsgBtnSupport     Msg = "btn_support"
	MsgSupport        Msg = "support"
	MsgSupportLine    Msg = "support_line"
	MsgHelp           Msg = "help"
	MsgSomethingWrong Msg = "something_wrong"
)

// Effect is an outbound action the dispatcher must perform after a
// transition has been committed.
type Effect interface {
	effect()
}

// SendText renders a localized message. Args feed the message's format verbs.
type SendText struct {
	Msg  Msg
	Args []any
}

// Choice pairs a button label with the event the button fires. Catalog names
// and formatted amounts go in Label; fixed captions carry a LabelMsg the
// dispatcher localizes.
type Choice struct {
	Label    string
	LabelMsg Msg
	Event    Event
}

// PromptChoice renders a localized message with a set of choice buttons.
type PromptChoice struct {
	Msg     Msg
	Args    []any
	Choices []Choice
}

// NotifyOperator delivers a completed order record to the operator. It is
// best-effort: the session transition is already committed when it runs.
type NotifyOperator struct {
	Order CompletedOrder
}

func (SendText) effect()       {}
func (PromptChoice) effect()   {}
func (NotifyOperator) effect() {}

// CompletedOrder is the standalone record emitted when a draft completes.
// ChosenPrice is the selected tier in the reference currency; the remaining
// amounts are in the session currency.
type CompletedOrder struct {
	UserID          string
	RegionID        string
	Language        string
	Currency        string
	ProductID       string
	ProductName     string
	Quantity        int
	ChosenPrice     float64
	UnitPrice       float64
	TotalAmount     float64
	DepositAmount   float64
	BalanceAmount   float64
	PaymentProofRef string
	ShippingAddress string
	Phase           session.Phase
}
