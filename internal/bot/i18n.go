package bot

import (
	"fmt"

	"orderbot/internal/order"
)

// Message texts live here, never in the core: the state machine emits message
// ids and the dispatcher renders them. Languages without a translation fall
// back to English.
var messages = map[order.Msg]map[string]string{
	order.MsgChooseRegion: {
		"en": "Please select your country:",
		"de": "Bitte wählen Sie Ihr Land:",
	},
	order.MsgMainMenu: {
		"en": "What would you like to do?",
		"de": "Was möchten Sie tun?",
	},
	order.MsgBtnShop: {
		"en": "🛍️ Shop",
		"de": "🛍️ Einkaufen",
	},
	order.MsgBtnSupport: {
		"en": "🆘 Contact Support",
		"de": "🆘 Support kontaktieren",
	},
	order.MsgChooseProduct: {
		"en": "What would you like to shop?",
		"de": "Was möchten Sie kaufen?",
	},
	order.MsgUnknownProduct: {
		"en": "That product is not available. Please pick one from the list.",
		"de": "Dieses Produkt ist nicht verfügbar. Bitte wählen Sie eines aus der Liste.",
	},
	order.MsgAskQuantity: {
		"en": "Please select quantity for %s\n\nPrices:\n%s\n\nPlease send me the quantity (1, 2, 3, etc.):",
		"de": "Bitte wählen Sie die Menge für %s\n\nPreise:\n%s\n\nBitte senden Sie mir die Menge (1, 2, 3 usw.):",
	},
	order.MsgInvalidQuantity: {
		"en": "Please enter a valid quantity (1, 2, 3, etc.)",
		"de": "Bitte geben Sie eine gültige Menge ein (1, 2, 3 usw.)",
	},
	order.MsgChoosePrice: {
		"en": "Please select the price option:",
		"de": "Bitte wählen Sie die Preisoption:",
	},
	order.MsgInvalidPrice: {
		"en": "Please select one of the offered price options.",
		"de": "Bitte wählen Sie eine der angebotenen Preisoptionen.",
	},
	order.MsgOrderSummary: {
		"en": "Order Summary:\n\nProduct: %s\nQuantity: %d\nPrice per item: %.2f %s\nTotal amount: %.2f %s",
		"de": "Bestellübersicht:\n\nProdukt: %s\nMenge: %d\nPreis pro Stück: %.2f %s\nGesamtbetrag: %.2f %s",
	},
	order.MsgDepositSplit: {
		"en": "Deposit required now: %.2f %s\nBalance on delivery: %.2f %s",
		"de": "Anzahlung jetzt erforderlich: %.2f %s\nRestzahlung bei Lieferung: %.2f %s",
	},
	order.MsgPaymentInstructions: {
		"en": "Please send the deposit to our payment address:\n\n%s\n\nAfter payment, please send a screenshot as proof.",
		"de": "Bitte senden Sie die Anzahlung an unsere Zahlungsadresse:\n\n%s\n\nNach der Zahlung senden Sie bitte einen Screenshot als Nachweis.",
	},
	order.MsgProofReceived: {
		"en": "Thank you for the payment proof. Please provide your shipping address:",
		"de": "Vielen Dank für den Zahlungsnachweis. Bitte geben Sie Ihre Lieferadresse an:",
	},
	order.MsgOrderConfirmed: {
		"en": "Thank you for your order! Our support will contact you soon.",
		"de": "Vielen Dank für Ihre Bestellung! Unser Support wird sich in Kürze bei Ihnen melden.",
	},
	order.MsgStartOver: {
		"en": "Please start over.",
		"de": "Bitte beginnen Sie von vorne.",
	},
	order.MsgUseMenu: {
		"en": "Please use the menu buttons to continue.",
		"de": "Bitte verwenden Sie die Menütasten, um fortzufahren.",
	},
	order.MsgSupport: {
		"en": "For any issues, please contact our support team: %s",
		"de": "Bei Problemen wenden Sie sich bitte an unser Support-Team: %s",
	},
	order.MsgSupportLine: {
		"en": "If you have any questions, please contact %s.",
		"de": "Bei Fragen wenden Sie sich bitte an %s.",
	},
	order.MsgHelp: {
		"en": "Available commands:\n/start - restart the conversation\n/help - show this help",
		"de": "Verfügbare Befehle:\n/start - Gespräch neu starten\n/help - diese Hilfe anzeigen",
	},
	order.MsgSomethingWrong: {
		"en": "Sorry, something went wrong. Please try again.",
		"de": "Entschuldigung, etwas ist schiefgelaufen. Bitte versuchen Sie es erneut.",
	},
}

// localize resolves a message id for a language, with a guaranteed English
// fallback for unknown languages and ids.
func localize(msg order.Msg, lang string) string {
	byLang, ok := messages[msg]
	if !ok {
		return string(msg)
	}
	if text, ok := byLang[lang]; ok {
		return text
	}
	return byLang["en"]
}

// localizef resolves and formats a message in one step.
func localizef(msg order.Msg, lang string, args ...any) string {
	format := localize(msg, lang)
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
