package order

// Event is a typed user action routed in by the dispatcher. The transport is
// not visible here: events carry only the payload the state machine needs.
type Event interface {
	Kind() string
}

// Start re-enters the conversation: a new user is prompted for a region, a
// known user gets the main menu. It never mutates the session.
type Start struct{}

// SelectRegion is the first choice a new user makes.
type SelectRegion struct {
	RegionID string
}

// OpenShop asks for the product list.
type OpenShop struct{}

// SelectProduct starts a draft order for the product.
type SelectProduct struct {
	ProductID string
}

// SubmitQuantity carries the raw quantity text as the user typed it.
type SubmitQuantity struct {
	Raw string
}

// SelectPrice picks a price tier by index.
type SelectPrice struct {
	TierIndex int
}

// SubmitPaymentProof carries an opaque reference to the uploaded proof.
type SubmitPaymentProof struct {
	Ref string
}

// SubmitAddress carries the shipping address text.
type SubmitAddress struct {
	Address string
}

// QueryKind selects an operator aggregate.
type QueryKind string

const (
	QueryUserCount  QueryKind = "user_count"
	QueryOrderCount QueryKind = "order_count"
)

// OperatorQuery is an aggregate lookup available only to the configured
// operator identity. It never touches a session; the dispatcher answers it
// from the order log.
type OperatorQuery struct {
	Query QueryKind
}

func (Start) Kind() string              { return "start" }
func (SelectRegion) Kind() string       { return "select_region" }
func (OpenShop) Kind() string           { return "open_shop" }
func (SelectProduct) Kind() string      { return "select_product" }
func (SubmitQuantity) Kind() string     { return "submit_quantity" }
func (SelectPrice) Kind() string        { return "select_price" }
func (SubmitPaymentProof) Kind() string { return "submit_payment_proof" }
func (SubmitAddress) Kind() string      { return "submit_address" }
func (OperatorQuery) Kind() string      { return "operator_query" }
