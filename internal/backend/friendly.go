package backend

import "strings"

// friendlyRules map substrings of backend (ledger) error text onto messages
// a payer can act on. Matching is case-insensitive and first match wins.
var friendlyRules = []struct {
	needles []string
	message string
}{
	{
		needles: []string{"token_not_associated", "not associated"},
		message: "The recipient account has not associated this token yet. Ask them to associate it in their wallet, then retry.",
	},
	{
		needles: []string{"insufficient_token_balance", "insufficient_account_balance", "insufficient_payer_balance", "insufficient balance", "insufficient funds"},
		message: "The sending account does not have enough balance to cover this transfer.",
	},
	{
		needles: []string{"invalid_account_id", "account_id_does_not_exist", "account not found", "invalid account", "account_deleted"},
		message: "The recipient account does not exist on this network. Check the account id and try again.",
	},
	{
		needles: []string{"invalid_signature", "invalid signature"},
		message: "The transfer signature was not accepted. The operator key may not match the sending account.",
	},
	{
		needles: []string{"token_is_paused", "account_frozen_for_token", "frozen", "paused"},
		message: "This token is paused or frozen for one of the accounts, so it cannot be transferred right now.",
	},
}

// FriendlyError returns a user-facing explanation for a backend error. Text
// that matches no known failure is returned unchanged.
func FriendlyError(raw string) string {
	lower := strings.ToLower(raw)
	for _, rule := range friendlyRules {
		for _, needle := range rule.needles {
			if strings.Contains(lower, needle) {
				return rule.message
			}
		}
	}
	return raw
}
