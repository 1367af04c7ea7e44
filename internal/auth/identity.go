package auth

// Identity is the authenticated user as reported by the OAuth provider.
// It is re-derived on every successful login and never edited locally.
type Identity struct {
	ProviderID  string `json:"id"`          // provider-scoped user id; doubles as the profile key
	DisplayName string `json:"displayName"` // provider username, with legacy discriminator when present
}
