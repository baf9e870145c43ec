// Package ledger wraps the Hedera SDK for identifiers, amounts and transfer
// transactions.
package ledger

import (
	"regexp"
	"strings"

	"github.com/hashgraph/hedera-sdk-go/v2"

	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// AccountIDPattern is the shard.realm.num form accepted for recipients.
//
//nolint:gochecknoglobals // compiled once
var AccountIDPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// ParseAccountID validates and parses a shard.realm.num account id.
// Checksummed or alias forms are rejected.
func ParseAccountID(s string) (hedera.AccountID, error) {
	s = strings.TrimSpace(s)
	if !AccountIDPattern.MatchString(s) {
		return hedera.AccountID{}, bpayerr.WithDetails(bpayerr.ErrInvalidAccountID, map[string]string{"account": s})
	}
	id, err := hedera.AccountIDFromString(s)
	if err != nil {
		return hedera.AccountID{}, bpayerr.WithCause(bpayerr.ErrInvalidAccountID, err)
	}
	return id, nil
}

// IsAccountID reports whether s is a valid shard.realm.num account id.
func IsAccountID(s string) bool {
	_, err := ParseAccountID(s)
	return err == nil
}

// ParseTokenID parses a shard.realm.num token id.
func ParseTokenID(s string) (hedera.TokenID, error) {
	s = strings.TrimSpace(s)
	if !AccountIDPattern.MatchString(s) {
		return hedera.TokenID{}, bpayerr.WithDetails(bpayerr.ErrInvalidTokenID, map[string]string{"token": s})
	}
	id, err := hedera.TokenIDFromString(s)
	if err != nil {
		return hedera.TokenID{}, bpayerr.WithCause(bpayerr.ErrInvalidTokenID, err)
	}
	return id, nil
}

// AccountFromNamespaced extracts the account id from a session account
// string such as "hedera:testnet:0.0.1234". A bare account id is returned
// as is. The result is empty when no account id can be found.
func AccountFromNamespaced(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	idx := strings.LastIndex(s, ":")
	candidate := s[idx+1:]
	if !AccountIDPattern.MatchString(candidate) {
		return ""
	}
	return candidate
}

// FirstAccount returns the first account id found in a list of namespaced
// account strings.
func FirstAccount(accounts []string) string {
	for _, a := range accounts {
		if id := AccountFromNamespaced(a); id != "" {
			return id
		}
	}
	return ""
}

// Namespaced formats an account id as network-qualified session account.
func Namespaced(network Network, accountID string) string {
	return network.ChainID() + ":" + accountID
}
