package session

// Phase is the current node of the conversation for a session.
type Phase string

const (
	PhaseNew             Phase = "new"
	PhaseRegionSet       Phase = "region_set"
	PhaseBrowsing        Phase = "browsing"
	PhaseProductChosen   Phase = "product_chosen"
	PhaseQuantitySet     Phase = "quantity_set"
	PhaseAwaitingPayment Phase = "awaiting_payment"
	PhaseAwaitingAddress Phase = "awaiting_address"
	PhaseCompleted       Phase = "completed"
)

// InOrderFlow reports whether the phase is one of the draft-carrying phases.
func (p Phase) InOrderFlow() bool {
	switch p {
	case PhaseProductChosen, PhaseQuantitySet, PhaseAwaitingPayment, PhaseAwaitingAddress:
		return true
	}
	return false
}

// Draft is the order being assembled. Monetary amounts are in the session
// currency except ChosenPrice, which is the selected tier in the reference
// currency.
type Draft struct {
	ProductID       string  `json:"product_id"`
	Quantity        int     `json:"quantity"`
	ChosenPrice     float64 `json:"chosen_price"`
	UnitPrice       float64 `json:"unit_price"`
	TotalAmount     float64 `json:"total_amount"`
	DepositAmount   float64 `json:"deposit_amount"`
	BalanceAmount   float64 `json:"balance_amount"`
	PaymentProofRef string  `json:"payment_proof_ref,omitempty"`
	ShippingAddress string  `json:"shipping_address,omitempty"`
}

// Session is the durable per-user conversation record. Language and currency
// are cached from the region at selection time and never change while the
// session lives, so catalog edits do not alter in-progress sessions.
type Session struct {
	RegionID string `json:"region_id,omitempty"`
	Language string `json:"language,omitempty"`
	Currency string `json:"currency,omitempty"`
	Phase    Phase  `json:"phase"`
	Draft    *Draft `json:"draft_order,omitempty"`
}

// NewSession is the default record created on first contact.
func NewSession() Session {
	return Session{Phase: PhaseNew}
}
