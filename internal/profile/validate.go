package profile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidAddress = errors.New("invalid wallet address")

const maxAddressLen = 128

var (
	evmPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	// base58 and bech32 alphabets together; the chain decides the exact format.
	btcPattern = regexp.MustCompile(`^[13][1-9A-HJ-NP-Za-km-z]{25,34}$|^(bc1|tb1)[02-9ac-hj-np-z]{8,87}$`)
	adaPattern = regexp.MustCompile(`^(addr1|addr_test1|stake1)[02-9ac-hj-np-z]{8,}$|^(Ae2|DdzFF)[1-9A-HJ-NP-Za-km-z]{20,}$`)
)

// Normalize trims client input. Addresses come from an untrusted browser
// channel, so they are validated like any other request field; ownership is
// not proven.
func (w Wallets) Normalize() Wallets {
	return Wallets{
		EVM: strings.TrimSpace(w.EVM),
		BTC: strings.TrimSpace(w.BTC),
		ADA: strings.TrimSpace(w.ADA),
	}
}

// Validate checks every non-empty field against its chain's address format.
func (w Wallets) Validate() error {
	var errs []error
	check := func(field, v string, re *regexp.Regexp) {
		if v == "" {
			return
		}
		if len(v) > maxAddressLen || !re.MatchString(v) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidAddress, field))
		}
	}
	check("evmAddress", w.EVM, evmPattern)
	check("btcAddress", w.BTC, btcPattern)
	check("adaAddress", w.ADA, adaPattern)
	return errors.Join(errs...)
}
