package intent

import (
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/carrental-bot/internal/catalog"
	"github.com/wolfman30/carrental-bot/internal/session"
)

// Input is what a rule sees: the trimmed text, its lower-cased form and
// the current session state.
type Input struct {
	Text  string
	Lower string
	State session.State
}

// Rule matches one intent. Rules are evaluated in slice order and the
// first match wins.
type Rule struct {
	Name  string
	Match func(Input) (Intent, bool)
}

var (
	greetingWords     = []string{"hi", "hello", "hey", "start", "ambo", "habari"}
	catalogWords      = []string{"car", "browse", "catalog", "vehicle"}
	paymentWords      = []string{"pay", "payment", "deposit", "mpesa", "bank", "cash"}
	confirmationWords = []string{"paid", "sent", "transferred", "completed", "done", "confirm"}
)

// DefaultRules is the production cascade.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "button", Match: func(in Input) (Intent, bool) {
			if !IsButtonID(in.Text) {
				return Intent{}, false
			}
			return Intent{Kind: KindButtonClick, Raw: in.Text}, true
		}},
		{Name: "greeting", Match: keywordRule(KindGreeting, greetingWords...)},
		{Name: "catalog", Match: func(in Input) (Intent, bool) {
			if !containsAny(in.Lower, catalogWords...) {
				return Intent{}, false
			}
			out := Intent{Kind: KindCatalogRequest, Raw: in.Text}
			for _, cat := range catalog.Categories() {
				if strings.Contains(in.Lower, string(cat)) {
					out.Category = cat
					break
				}
			}
			return out, true
		}},
		{Name: "car_selection", Match: func(in Input) (Intent, bool) {
			switch {
			case isNumeric(in.Lower):
				return Intent{Kind: KindCarSelection, Raw: in.Text, Index: atoiOrZero(in.Lower)}, true
			case strings.HasPrefix(in.Lower, PrefixCar):
				return Intent{Kind: KindCarSelection, Raw: in.Text, CarID: strings.TrimPrefix(in.Lower, PrefixCar)}, true
			}
			return Intent{}, false
		}},
		{Name: "booking_request", Match: keywordRule(KindBookingRequest, "book")},
		{Name: "booking_details", Match: func(in Input) (Intent, bool) {
			if in.State != session.StateBookingForm || utf8.RuneCountInString(in.Text) <= 3 {
				return Intent{}, false
			}
			return Intent{Kind: KindBookingDetails, Raw: in.Text}, true
		}},
		{Name: "payment_request", Match: stateKeywordRule(session.StatePaymentPending, KindPaymentRequest, paymentWords...)},
		{Name: "payment_confirmation", Match: stateKeywordRule(session.StatePaymentInstructions, KindPaymentConfirmation, confirmationWords...)},
		{Name: "price", Match: keywordRule(KindPriceInquiry, "price", "cost")},
		{Name: "location", Match: keywordRule(KindLocationInquiry, "location", "where")},
		{Name: "help", Match: keywordRule(KindHelpRequest, "help", "support")},
		{Name: "booking_check", Match: func(in Input) (Intent, bool) {
			if strings.Contains(in.Lower, "booking") && containsAny(in.Lower, "check", "my") {
				return Intent{Kind: KindBookingCheck, Raw: in.Text}, true
			}
			return Intent{}, false
		}},
	}
}

func keywordRule(kind Kind, words ...string) func(Input) (Intent, bool) {
	return func(in Input) (Intent, bool) {
		if containsAny(in.Lower, words...) {
			return Intent{Kind: kind, Raw: in.Text}, true
		}
		return Intent{}, false
	}
}

func stateKeywordRule(state session.State, kind Kind, words ...string) func(Input) (Intent, bool) {
	match := keywordRule(kind, words...)
	return func(in Input) (Intent, bool) {
		if in.State != state {
			return Intent{}, false
		}
		return match(in)
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Classifier runs an ordered rule list.
type Classifier struct {
	rules []Rule
}

// NewClassifier uses DefaultRules when none are given.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the first matching rule's intent, or Unrecognized.
func (c *Classifier) Classify(text string, state session.State) Intent {
	in := Input{Text: strings.TrimSpace(text), State: state}
	in.Lower = strings.ToLower(in.Text)
	for _, r := range c.rules {
		if out, ok := r.Match(in); ok {
			return out
		}
	}
	return Intent{Kind: KindUnrecognized, Raw: in.Text}
}

// RuleNames lists the cascade order.
func (c *Classifier) RuleNames() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}
