package order

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"orderbot/internal/catalog"
	"orderbot/internal/pricing"
	"orderbot/internal/session"
)

// Machine is the conversation state machine. It holds no per-user state of
// its own: every transition reads the session through the store, applies the
// event, and returns the outbound effects for the dispatcher to perform.
type Machine struct {
	store  session.Store
	cat    *catalog.Catalog
	conv   pricing.Converter
	logger *zap.Logger
}

func New(store session.Store, cat *catalog.Catalog, logger *zap.Logger) *Machine {
	return &Machine{
		store:  store,
		cat:    cat,
		conv:   cat.Converter(),
		logger: logger,
	}
}

// Handle applies one inbound event to the user's session atomically. Rejected
// guards leave the session untouched and still produce a corrective effect. A
// store failure aborts the whole event: no effects, caller retries.
func (m *Machine) Handle(ctx context.Context, userID string, ev Event) ([]Effect, error) {
	var effects []Effect
	sess, err := m.store.Update(ctx, userID, func(s *session.Session) (bool, error) {
		fx, changed := m.transition(s, userID, ev)
		effects = fx
		return changed, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update session for user %s: %w", userID, err)
	}

	m.logger.Debug("Event handled",
		zap.String("user_id", userID),
		zap.String("event", ev.Kind()),
		zap.String("phase", string(sess.Phase)))
	return effects, nil
}

func (m *Machine) transition(s *session.Session, userID string, ev Event) ([]Effect, bool) {
	// Nothing but a region selection is accepted before a region is set.
	if s.RegionID == "" {
		if sel, ok := ev.(SelectRegion); ok {
			return m.applyRegion(s, sel)
		}
		return []Effect{m.promptRegion()}, false
	}

	switch ev := ev.(type) {
	case Start:
		return []Effect{m.mainMenu()}, false
	case SelectRegion:
		return m.applyRegion(s, ev)
	case OpenShop:
		return m.openShop(s)
	case SelectProduct:
		return m.selectProduct(s, ev)
	case SubmitQuantity:
		return m.submitQuantity(s, ev)
	case SelectPrice:
		return m.selectPrice(s, ev)
	case SubmitPaymentProof:
		return m.submitPaymentProof(s, ev)
	case SubmitAddress:
		return m.submitAddress(s, userID, ev)
	default:
		return []Effect{SendText{Msg: MsgUseMenu}}, false
	}
}

// applyRegion sets region, language and currency once per session. A repeat
// selection only re-shows the main menu: the cached language and currency are
// frozen for the session's lifetime.
func (m *Machine) applyRegion(s *session.Session, ev SelectRegion) ([]Effect, bool) {
	r, err := m.cat.Region(ev.RegionID)
	if err != nil {
		return []Effect{m.promptRegion()}, false
	}

	if s.RegionID != "" {
		return []Effect{m.mainMenu()}, false
	}

	s.RegionID = r.ID
	s.Language = r.Language
	s.Currency = r.Currency
	s.Phase = session.PhaseRegionSet
	return []Effect{m.mainMenu()}, true
}

// openShop lists the products. An in-flight draft is abandoned: browsing anew
// is the user's way of starting over.
func (m *Machine) openShop(s *session.Session) ([]Effect, bool) {
	changed := false
	if s.Draft != nil {
		s.Draft = nil
		changed = true
	}
	if s.Phase != session.PhaseBrowsing {
		s.Phase = session.PhaseBrowsing
		changed = true
	}
	return []Effect{m.promptProducts()}, changed
}

func (m *Machine) selectProduct(s *session.Session, ev SelectProduct) ([]Effect, bool) {
	p, err := m.cat.Product(ev.ProductID)
	if err != nil {
		return []Effect{SendText{Msg: MsgUnknownProduct}, m.promptProducts()}, false
	}

	s.Draft = &session.Draft{ProductID: p.ID}
	s.Phase = session.PhaseProductChosen
	return []Effect{SendText{
		Msg:  MsgAskQuantity,
		Args: []any{p.Name, m.priceList(p, s.Currency)},
	}}, true
}

func (m *Machine) submitQuantity(s *session.Session, ev SubmitQuantity) ([]Effect, bool) {
	if s.Draft == nil {
		return m.startOver(s)
	}
	if s.Phase != session.PhaseProductChosen {
		return []Effect{SendText{Msg: MsgUseMenu}}, false
	}

	q, err := strconv.Atoi(strings.TrimSpace(ev.Raw))
	if err != nil || q < 1 {
		return []Effect{SendText{Msg: MsgInvalidQuantity}}, false
	}

	p, err := m.cat.Product(s.Draft.ProductID)
	if err != nil {
		// Product disappeared from the catalog under the draft.
		return m.startOver(s)
	}

	s.Draft.Quantity = q
	if len(p.Prices) == 1 {
		return m.applyPrice(s, p, 0), true
	}

	s.Phase = session.PhaseQuantitySet
	return []Effect{m.promptPrices(p, s.Currency)}, true
}

func (m *Machine) selectPrice(s *session.Session, ev SelectPrice) ([]Effect, bool) {
	if s.Draft == nil {
		return m.startOver(s)
	}
	if s.Phase != session.PhaseQuantitySet {
		return []Effect{SendText{Msg: MsgUseMenu}}, false
	}

	p, err := m.cat.Product(s.Draft.ProductID)
	if err != nil {
		return m.startOver(s)
	}
	if ev.TierIndex < 0 || ev.TierIndex >= len(p.Prices) {
		return []Effect{SendText{Msg: MsgInvalidPrice}, m.promptPrices(p, s.Currency)}, false
	}

	return m.applyPrice(s, p, ev.TierIndex), true
}

// applyPrice fixes the chosen tier, computes the totals in the session
// currency and moves the draft to awaiting payment.
func (m *Machine) applyPrice(s *session.Session, p catalog.Product, tier int) []Effect {
	price := p.Prices[tier]
	t := m.conv.ComputeTotals(price, s.Draft.Quantity, p.DepositPercent, s.Currency)

	d := s.Draft
	d.ChosenPrice = price
	d.UnitPrice = t.UnitPrice
	d.TotalAmount = t.Total
	d.DepositAmount = t.Deposit
	d.BalanceAmount = t.Balance
	s.Phase = session.PhaseAwaitingPayment

	effects := []Effect{SendText{
		Msg:  MsgOrderSummary,
		Args: []any{p.Name, d.Quantity, d.UnitPrice, s.Currency, d.TotalAmount, s.Currency},
	}}
	if p.DepositPercent < 100 {
		effects = append(effects, SendText{
			Msg:  MsgDepositSplit,
			Args: []any{d.DepositAmount, s.Currency, d.BalanceAmount, s.Currency},
		})
	}
	return append(effects, SendText{Msg: MsgPaymentInstructions})
}

func (m *Machine) submitPaymentProof(s *session.Session, ev SubmitPaymentProof) ([]Effect, bool) {
	if s.Draft == nil {
		return m.startOver(s)
	}
	if s.Phase != session.PhaseAwaitingPayment && s.Phase != session.PhaseAwaitingAddress {
		// A stray upload outside the payment step is ignored, as the
		// original flow did.
		return nil, false
	}

	s.Draft.PaymentProofRef = ev.Ref
	s.Phase = session.PhaseAwaitingAddress
	return []Effect{SendText{Msg: MsgProofReceived}}, true
}

func (m *Machine) submitAddress(s *session.Session, userID string, ev SubmitAddress) ([]Effect, bool) {
	if s.Draft == nil {
		return m.startOver(s)
	}
	// The address is accepted as soon as the summary was shown: payment
	// proof is optional before it.
	if s.Phase != session.PhaseAwaitingPayment && s.Phase != session.PhaseAwaitingAddress {
		return []Effect{SendText{Msg: MsgUseMenu}}, false
	}

	addr := strings.TrimSpace(ev.Address)
	if addr == "" {
		return []Effect{SendText{Msg: MsgStartOver}}, false
	}

	d := *s.Draft
	d.ShippingAddress = addr

	name := d.ProductID
	if p, err := m.cat.Product(d.ProductID); err == nil {
		name = p.Name
	}

	rec := CompletedOrder{
		UserID:          userID,
		RegionID:        s.RegionID,
		Language:        s.Language,
		Currency:        s.Currency,
		ProductID:       d.ProductID,
		ProductName:     name,
		Quantity:        d.Quantity,
		ChosenPrice:     d.ChosenPrice,
		UnitPrice:       d.UnitPrice,
		TotalAmount:     d.TotalAmount,
		DepositAmount:   d.DepositAmount,
		BalanceAmount:   d.BalanceAmount,
		PaymentProofRef: d.PaymentProofRef,
		ShippingAddress: d.ShippingAddress,
		Phase:           session.PhaseCompleted,
	}

	// The session returns to the browsing baseline so the next order can
	// start immediately; region, language and currency stay.
	s.Draft = nil
	s.Phase = session.PhaseBrowsing

	return []Effect{
		NotifyOperator{Order: rec},
		SendText{Msg: MsgOrderConfirmed},
	}, true
}

// startOver recovers from events that need a draft when none exists. The
// session is reset to the browsing baseline; a leftover draft is discarded.
func (m *Machine) startOver(s *session.Session) ([]Effect, bool) {
	changed := false
	if s.Draft != nil {
		s.Draft = nil
		changed = true
	}
	if s.Phase != session.PhaseBrowsing && s.Phase != session.PhaseRegionSet {
		s.Phase = session.PhaseBrowsing
		changed = true
	}
	return []Effect{SendText{Msg: MsgStartOver}, m.mainMenu()}, changed
}

func (m *Machine) promptRegion() Effect {
	choices := make([]Choice, 0, len(m.cat.Regions))
	for _, r := range m.cat.Regions {
		choices = append(choices, Choice{Label: r.Name, Event: SelectRegion{RegionID: r.ID}})
	}
	return PromptChoice{Msg: MsgChooseRegion, Choices: choices}
}

func (m *Machine) mainMenu() Effect {
	return PromptChoice{
		Msg:     MsgMainMenu,
		Choices: []Choice{{LabelMsg: MsgBtnShop, Event: OpenShop{}}},
	}
}

func (m *Machine) promptProducts() Effect {
	choices := make([]Choice, 0, len(m.cat.Products))
	for _, p := range m.cat.Products {
		choices = append(choices, Choice{Label: p.Name, Event: SelectProduct{ProductID: p.ID}})
	}
	return PromptChoice{Msg: MsgChooseProduct, Choices: choices}
}

func (m *Machine) promptPrices(p catalog.Product, currency string) Effect {
	choices := make([]Choice, 0, len(p.Prices))
	for i, price := range p.Prices {
		label := fmt.Sprintf("%.2f %s", m.conv.Convert(price, m.conv.Reference, currency), currency)
		choices = append(choices, Choice{Label: label, Event: SelectPrice{TierIndex: i}})
	}
	return PromptChoice{Msg: MsgChoosePrice, Choices: choices}
}

func (m *Machine) priceList(p catalog.Product, currency string) string {
	var b strings.Builder
	for i, price := range p.Prices {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %.2f %s", i+1, m.conv.Convert(price, m.conv.Reference, currency), currency)
	}
	return b.String()
}
