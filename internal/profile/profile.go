package profile

import "time"

// Wallets holds the declared external-chain addresses. An empty string
// means the address was never supplied.
type Wallets struct {
	EVM string `json:"evmAddress,omitempty"`
	BTC string `json:"btcAddress,omitempty"`
	ADA string `json:"adaAddress,omitempty"`
}

// Merge overlays incoming on w. Only non-empty incoming values replace
// stored ones; an omitted field never erases an existing address.
func (w Wallets) Merge(incoming Wallets) Wallets {
	if incoming.EVM != "" {
		w.EVM = incoming.EVM
	}
	if incoming.BTC != "" {
		w.BTC = incoming.BTC
	}
	if incoming.ADA != "" {
		w.ADA = incoming.ADA
	}
	return w
}

// Empty reports whether no address is set.
func (w Wallets) Empty() bool {
	return w.EVM == "" && w.BTC == "" && w.ADA == ""
}

// Profile is keyed by the provider user id.
type Profile struct {
	IdentityKey string `json:"identityKey"`
	DisplayName string `json:"displayName"`
	Wallets
	// UpdatedAt is nil until the first save; a profile created at login
	// without a save does not count as saved.
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Saved reports whether the user ever saved this profile.
func (p Profile) Saved() bool {
	return p.UpdatedAt != nil
}

func (p Profile) clone() Profile {
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		p.UpdatedAt = &t
	}
	return p
}
