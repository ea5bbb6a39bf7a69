package bot

import (
	"fmt"
	"strconv"
	"strings"

	"orderbot/internal/order"
)

// Callback data carried on inline buttons, kind:value.
const (
	cbShop    = "shop"
	cbSupport = "support"

	cbPrefixRegion  = "region:"
	cbPrefixProduct = "product:"
	cbPrefixPrice   = "price:"
)

// callbackData serializes a core event into inline button data.
func callbackData(ev order.Event) (string, bool) {
	switch ev := ev.(type) {
	case order.SelectRegion:
		return cbPrefixRegion + ev.RegionID, true
	case order.OpenShop:
		return cbShop, true
	case order.SelectProduct:
		return cbPrefixProduct + ev.ProductID, true
	case order.SelectPrice:
		return fmt.Sprintf("%s%d", cbPrefixPrice, ev.TierIndex), true
	default:
		return "", false
	}
}

// parseCallback turns inline button data back into a core event.
func parseCallback(data string) (order.Event, bool) {
	switch {
	case data == cbShop:
		return order.OpenShop{}, true
	case strings.HasPrefix(data, cbPrefixRegion):
		return order.SelectRegion{RegionID: strings.TrimPrefix(data, cbPrefixRegion)}, true
	case strings.HasPrefix(data, cbPrefixProduct):
		return order.SelectProduct{ProductID: strings.TrimPrefix(data, cbPrefixProduct)}, true
	case strings.HasPrefix(data, cbPrefixPrice):
		idx, err := strconv.Atoi(strings.TrimPrefix(data, cbPrefixPrice))
		if err != nil {
			return nil, false
		}
		return order.SelectPrice{TierIndex: idx}, true
	default:
		return nil, false
	}
}
