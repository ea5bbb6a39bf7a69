package order

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"orderbot/internal/catalog"
	"orderbot/internal/session"
)

const testCatalogYAML = `
reference_currency: EUR
rates:
  EUR: 1
  TRY: 10.5
regions:
  - id: DE
    name: Deutschland
    language: de
    currency: EUR
  - id: TR
    name: Türkiye
    language: tr
    currency: TRY
products:
  - id: starter
    name: Starter Pack
    prices: [10.00, 20.00]
    deposit_percent: 50
  - id: premium
    name: Premium Pack
    prices: [45.00]
    deposit_percent: 100
`

func newTestMachine(t *testing.T) (*Machine, *session.MemoryStore) {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalogYAML))
	if err != nil {
		t.Fatalf("failed to parse test catalog: %v", err)
	}
	store := session.NewMemoryStore()
	return New(store, cat, zaptest.NewLogger(t)), store
}

func handle(t *testing.T, m *Machine, userID string, ev Event) []Effect {
	t.Helper()
	effects, err := m.Handle(context.Background(), userID, ev)
	if err != nil {
		t.Fatalf("Handle(%s) failed: %v", ev.Kind(), err)
	}
	return effects
}

func getSession(t *testing.T, store *session.MemoryStore, userID string) session.Session {
	t.Helper()
	sess, err := store.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return sess
}

func firstPrompt(t *testing.T, effects []Effect) PromptChoice {
	t.Helper()
	for _, e := range effects {
		if p, ok := e.(PromptChoice); ok {
			return p
		}
	}
	t.Fatalf("no PromptChoice in %d effects", len(effects))
	return PromptChoice{}
}

func textMsgs(effects []Effect) []Msg {
	var msgs []Msg
	for _, e := range effects {
		if s, ok := e.(SendText); ok {
			msgs = append(msgs, s.Msg)
		}
	}
	return msgs
}

func operatorNotices(effects []Effect) []NotifyOperator {
	var out []NotifyOperator
	for _, e := range effects {
		if n, ok := e.(NotifyOperator); ok {
			out = append(out, n)
		}
	}
	return out
}

// driveToPayment runs a fresh TR user to the awaiting-payment step on the
// two-tier product: region, shop, product, quantity 3, tier 0.
func driveToPayment(t *testing.T, m *Machine) string {
	t.Helper()
	const userID = "100"
	handle(t, m, userID, SelectRegion{RegionID: "TR"})
	handle(t, m, userID, OpenShop{})
	handle(t, m, userID, SelectProduct{ProductID: "starter"})
	handle(t, m, userID, SubmitQuantity{Raw: "3"})
	handle(t, m, userID, SelectPrice{TierIndex: 0})
	return userID
}

func TestEventsBeforeRegionRepromptRegion(t *testing.T) {
	m, store := newTestMachine(t)

	for _, ev := range []Event{OpenShop{}, SelectProduct{ProductID: "starter"}, SubmitQuantity{Raw: "2"}, Start{}} {
		effects := handle(t, m, "1", ev)
		prompt := firstPrompt(t, effects)
		if prompt.Msg != MsgChooseRegion {
			t.Errorf("%s before region: prompt %q, want %q", ev.Kind(), prompt.Msg, MsgChooseRegion)
		}
	}

	sess := getSession(t, store, "1")
	if sess.Phase != session.PhaseNew || sess.RegionID != "" {
		t.Errorf("Session mutated before region selection: %+v", sess)
	}
}

func TestSelectRegionSetsSessionOnce(t *testing.T) {
	m, store := newTestMachine(t)

	effects := handle(t, m, "1", SelectRegion{RegionID: "DE"})
	if prompt := firstPrompt(t, effects); prompt.Msg != MsgMainMenu {
		t.Errorf("Expected main menu after region selection, got %q", prompt.Msg)
	}

	sess := getSession(t, store, "1")
	if sess.RegionID != "DE" || sess.Language != "de" || sess.Currency != "EUR" {
		t.Errorf("Region snapshot wrong: %+v", sess)
	}
	if sess.Phase != session.PhaseRegionSet {
		t.Errorf("Phase = %q, want %q", sess.Phase, session.PhaseRegionSet)
	}

	// A second selection, even of a different region, must not change the
	// cached language or currency.
	handle(t, m, "1", SelectRegion{RegionID: "TR"})
	sess = getSession(t, store, "1")
	if sess.RegionID != "DE" || sess.Currency != "EUR" {
		t.Errorf("Region re-selection changed the session: %+v", sess)
	}
}

func TestSelectRegionUnknownID(t *testing.T) {
	m, store := newTestMachine(t)

	effects := handle(t, m, "1", SelectRegion{RegionID: "XX"})
	if prompt := firstPrompt(t, effects); prompt.Msg != MsgChooseRegion {
		t.Errorf("Unknown region should re-prompt, got %q", prompt.Msg)
	}
	if sess := getSession(t, store, "1"); sess.RegionID != "" {
		t.Errorf("Unknown region mutated session: %+v", sess)
	}
}

func TestUnknownProductKeepsBrowsing(t *testing.T) {
	m, store := newTestMachine(t)
	handle(t, m, "1", SelectRegion{RegionID: "DE"})
	handle(t, m, "1", OpenShop{})

	effects := handle(t, m, "1", SelectProduct{ProductID: "nope"})
	msgs := textMsgs(effects)
	if len(msgs) == 0 || msgs[0] != MsgUnknownProduct {
		t.Errorf("Expected unknown product message, got %v", msgs)
	}

	sess := getSession(t, store, "1")
	if sess.Phase != session.PhaseBrowsing {
		t.Errorf("Phase = %q, want %q", sess.Phase, session.PhaseBrowsing)
	}
	if sess.Draft != nil {
		t.Error("Unknown product must not create a draft")
	}
}

func TestSelectProductStartsDraft(t *testing.T) {
	m, store := newTestMachine(t)
	handle(t, m, "1", SelectRegion{RegionID: "TR"})
	handle(t, m, "1", OpenShop{})

	effects := handle(t, m, "1", SelectProduct{ProductID: "starter"})
	msgs := textMsgs(effects)
	if len(msgs) != 1 || msgs[0] != MsgAskQuantity {
		t.Errorf("Expected quantity prompt, got %v", msgs)
	}

	sess := getSession(t, store, "1")
	if sess.Phase != session.PhaseProductChosen {
		t.Errorf("Phase = %q, want %q", sess.Phase, session.PhaseProductChosen)
	}
	if sess.Draft == nil || sess.Draft.ProductID != "starter" {
		t.Errorf("Draft = %+v, want starter draft", sess.Draft)
	}
}

func TestInvalidQuantityRejectedWithoutMutation(t *testing.T) {
	m, store := newTestMachine(t)
	handle(t, m, "1", SelectRegion{RegionID: "TR"})
	handle(t, m, "1", OpenShop{})
	handle(t, m, "1", SelectProduct{ProductID: "starter"})

	for _, raw := range []string{"abc", "0", "-3", "1.5", ""} {
		effects := handle(t, m, "1", SubmitQuantity{Raw: raw})
		msgs := textMsgs(effects)
		if len(msgs) != 1 || msgs[0] != MsgInvalidQuantity {
			t.Errorf("Quantity %q: expected invalid quantity message, got %v", raw, msgs)
		}
	}

	sess := getSession(t, store, "1")
	if sess.Phase != session.PhaseProductChosen {
		t.Errorf("Phase changed on rejected quantity: %q", sess.Phase)
	}
	if sess.Draft.Quantity != 0 {
		t.Errorf("Rejected quantity mutated draft: %+v", sess.Draft)
	}
}

func TestMultiTierQuantityPromptsPrice(t *testing.T) {
	m, store := newTestMachine(t)
	handle(t, m, "1", SelectRegion{RegionID: "TR"})
	handle(t, m, "1", OpenShop{})
	handle(t, m, "1", SelectProduct{ProductID: "starter"})

	effects := handle(t, m, "1", SubmitQuantity{Raw: "3"})
	prompt := firstPrompt(t, effects)
	if prompt.Msg != MsgChoosePrice {
		t.Errorf("Expected price prompt, got %q", prompt.Msg)
	}
	if len(prompt.Choices) != 2 {
		t.Errorf("Expected 2 tier choices, got %d", len(prompt.Choices))
	}
	// Tier labels are converted into the session currency.
	if prompt.Choices[0].Label != "105.00 TRY" {
		t.Errorf("Tier 0 label = %q, want %q", prompt.Choices[0].Label, "105.00 TRY")
	}

	sess := getSession(t, store, "1")
	if sess.Phase != session.PhaseQuantitySet {
		t.Errorf("Phase = %q, want %q", sess.Phase, session.PhaseQuantitySet)
	}
	if sess.Draft.Quantity != 3 {
		t.Errorf("Quantity = %d, want 3", sess.Draft.Quantity)
	}
}

func TestPriceIndexOutOfRangeRejected(t *testing.T) {
	m, store := newTestMachine(t)
	handle(t, m, "1", SelectRegion{RegionID: "TR"})
	handle(t, m, "1", OpenShop{})
	handle(t, m, "1", SelectProduct{ProductID: "starter"})
	handle(t, m, "1", SubmitQuantity{Raw: "3"})

	for _, idx := range []int{-1, 2, 99} {
		effects := handle(t, m, "1", SelectPrice{TierIndex: idx})
		msgs := textMsgs(effects)
		if len(msgs) == 0 || msgs[0] != MsgInvalidPrice {
			t.Errorf("Index %d: expected invalid price message, got %v", idx, msgs)
		}
	}

	sess := getSession(t, store, "1")
	if sess.Phase != session.PhaseQuantitySet || sess.Draft.ChosenPrice != 0 {
		t.Errorf("Rejected tier index mutated session: %+v", sess.Draft)
	}
}

func TestSelectPriceComputesTotals(t *testing.T) {
	m, store := newTestMachine(t)
	userID := driveToPayment(t, m)

	sess := getSession(t, store, userID)
	if sess.Phase != session.PhaseAwaitingPayment {
		t.Fatalf("Phase = %q, want %q", sess.Phase, session.PhaseAwaitingPayment)
	}

	d := sess.Draft
	if d.ChosenPrice != 10.00 {
		t.Errorf("ChosenPrice = %v, want 10.00", d.ChosenPrice)
	}
	if d.UnitPrice != 105.00 {
		t.Errorf("UnitPrice = %v, want 105.00", d.UnitPrice)
	}
	if d.TotalAmount != 315.00 {
		t.Errorf("TotalAmount = %v, want 315.00", d.TotalAmount)
	}
	if d.DepositAmount != 157.50 || d.BalanceAmount != 157.50 {
		t.Errorf("Deposit/balance = %v/%v, want 157.50/157.50", d.DepositAmount, d.BalanceAmount)
	}
}

func TestSingleTierSkipsPriceChoice(t *testing.T) {
	m, store := newTestMachine(t)
	handle(t, m, "1", SelectRegion{RegionID: "DE"})
	handle(t, m, "1", OpenShop{})
	handle(t, m, "1", SelectProduct{ProductID: "premium"})

	effects := handle(t, m, "1", SubmitQuantity{Raw: "2"})
	msgs := textMsgs(effects)
	if len(msgs) == 0 || msgs[0] != MsgOrderSummary {
		t.Errorf("Expected order summary straight after quantity, got %v", msgs)
	}
	// 100% deposit: no split message, just summary and payment instructions.
	for _, msg := range msgs {
		if msg == MsgDepositSplit {
			t.Error("Full deposit should not render a deposit split")
		}
	}

	sess := getSession(t, store, "1")
	if sess.Phase != session.PhaseAwaitingPayment {
		t.Errorf("Phase = %q, want %q", sess.Phase, session.PhaseAwaitingPayment)
	}
	if sess.Draft.TotalAmount != 90.00 {
		t.Errorf("TotalAmount = %v, want 90.00", sess.Draft.TotalAmount)
	}
}

func TestPaymentProofMovesToAddress(t *testing.T) {
	m, store := newTestMachine(t)
	userID := driveToPayment(t, m)

	effects := handle(t, m, userID, SubmitPaymentProof{Ref: "file-123"})
	msgs := textMsgs(effects)
	if len(msgs) != 1 || msgs[0] != MsgProofReceived {
		t.Errorf("Expected proof acknowledgement, got %v", msgs)
	}

	sess := getSession(t, store, userID)
	if sess.Phase != session.PhaseAwaitingAddress {
		t.Errorf("Phase = %q, want %q", sess.Phase, session.PhaseAwaitingAddress)
	}
	if sess.Draft.PaymentProofRef != "file-123" {
		t.Errorf("PaymentProofRef = %q, want file-123", sess.Draft.PaymentProofRef)
	}
}

func TestAddressCompletesOrder(t *testing.T) {
	m, store := newTestMachine(t)
	userID := driveToPayment(t, m)
	handle(t, m, userID, SubmitPaymentProof{Ref: "file-123"})

	effects := handle(t, m, userID, SubmitAddress{Address: "123 Main St"})

	notices := operatorNotices(effects)
	if len(notices) != 1 {
		t.Fatalf("Expected exactly one operator notification, got %d", len(notices))
	}
	o := notices[0].Order
	if o.ShippingAddress != "123 Main St" {
		t.Errorf("ShippingAddress = %q, want %q", o.ShippingAddress, "123 Main St")
	}
	if o.TotalAmount != 315.00 || o.DepositAmount != 157.50 || o.BalanceAmount != 157.50 {
		t.Errorf("Totals = %v/%v/%v, want 315.00/157.50/157.50",
			o.TotalAmount, o.DepositAmount, o.BalanceAmount)
	}
	if o.PaymentProofRef != "file-123" {
		t.Errorf("PaymentProofRef = %q, want file-123", o.PaymentProofRef)
	}
	if o.Phase != session.PhaseCompleted {
		t.Errorf("Order phase = %q, want %q", o.Phase, session.PhaseCompleted)
	}

	msgs := textMsgs(effects)
	if len(msgs) != 1 || msgs[0] != MsgOrderConfirmed {
		t.Errorf("Expected confirmation message, got %v", msgs)
	}

	// The session returns to the browsing baseline with its region frozen.
	sess := getSession(t, store, userID)
	if sess.Phase != session.PhaseBrowsing {
		t.Errorf("Phase = %q, want %q", sess.Phase, session.PhaseBrowsing)
	}
	if sess.Draft != nil {
		t.Error("Draft should be cleared on completion")
	}
	if sess.Currency != "TRY" || sess.RegionID != "TR" {
		t.Errorf("Region snapshot lost on completion: %+v", sess)
	}
}

func TestAddressWithoutProofCompletes(t *testing.T) {
	m, _ := newTestMachine(t)
	userID := driveToPayment(t, m)

	effects := handle(t, m, userID, SubmitAddress{Address: "Hauptstr. 1"})
	notices := operatorNotices(effects)
	if len(notices) != 1 {
		t.Fatalf("Expected one operator notification, got %d", len(notices))
	}
	if notices[0].Order.PaymentProofRef != "" {
		t.Errorf("Expected empty proof ref, got %q", notices[0].Order.PaymentProofRef)
	}
}

func TestDuplicateAddressAfterCompletionIsNoOrder(t *testing.T) {
	m, store := newTestMachine(t)
	userID := driveToPayment(t, m)
	handle(t, m, userID, SubmitAddress{Address: "123 Main St"})

	effects := handle(t, m, userID, SubmitAddress{Address: "123 Main St"})
	if n := operatorNotices(effects); len(n) != 0 {
		t.Errorf("Duplicate address produced %d operator notifications", len(n))
	}
	msgs := textMsgs(effects)
	if len(msgs) == 0 || msgs[0] != MsgStartOver {
		t.Errorf("Expected start over message, got %v", msgs)
	}

	sess := getSession(t, store, userID)
	if sess.Phase != session.PhaseBrowsing || sess.Draft != nil {
		t.Errorf("Session disturbed by duplicate address: %+v", sess)
	}
}

func TestDraftlessSubmitsAskToStartOver(t *testing.T) {
	m, store := newTestMachine(t)
	handle(t, m, "1", SelectRegion{RegionID: "DE"})

	for _, ev := range []Event{SubmitQuantity{Raw: "2"}, SelectPrice{TierIndex: 0}, SubmitAddress{Address: "x"}} {
		effects := handle(t, m, "1", ev)
		msgs := textMsgs(effects)
		if len(msgs) == 0 || msgs[0] != MsgStartOver {
			t.Errorf("%s without draft: expected start over, got %v", ev.Kind(), msgs)
		}
		if n := operatorNotices(effects); len(n) != 0 {
			t.Errorf("%s without draft produced operator notifications", ev.Kind())
		}
	}

	if sess := getSession(t, store, "1"); sess.Draft != nil {
		t.Errorf("Draft appeared from nowhere: %+v", sess)
	}
}

func TestRegionReselectionKeepsDraft(t *testing.T) {
	m, store := newTestMachine(t)
	handle(t, m, "1", SelectRegion{RegionID: "TR"})
	handle(t, m, "1", OpenShop{})
	handle(t, m, "1", SelectProduct{ProductID: "starter"})

	handle(t, m, "1", SelectRegion{RegionID: "TR"})

	sess := getSession(t, store, "1")
	if sess.Draft == nil || sess.Draft.ProductID != "starter" {
		t.Errorf("Region re-selection reset the draft: %+v", sess.Draft)
	}
	if sess.Phase != session.PhaseProductChosen {
		t.Errorf("Region re-selection changed phase to %q", sess.Phase)
	}
}

func TestOpenShopAbandonsDraft(t *testing.T) {
	m, store := newTestMachine(t)
	userID := driveToPayment(t, m)

	handle(t, m, userID, OpenShop{})

	sess := getSession(t, store, userID)
	if sess.Draft != nil {
		t.Errorf("Browsing anew should abandon the draft: %+v", sess.Draft)
	}
	if sess.Phase != session.PhaseBrowsing {
		t.Errorf("Phase = %q, want %q", sess.Phase, session.PhaseBrowsing)
	}
}

func TestStartShowsMenuWithoutMutation(t *testing.T) {
	m, store := newTestMachine(t)
	userID := driveToPayment(t, m)

	effects := handle(t, m, userID, Start{})
	if prompt := firstPrompt(t, effects); prompt.Msg != MsgMainMenu {
		t.Errorf("Start should show the main menu, got %q", prompt.Msg)
	}

	sess := getSession(t, store, userID)
	if sess.Phase != session.PhaseAwaitingPayment || sess.Draft == nil {
		t.Errorf("Start mutated the session: %+v", sess)
	}
}
