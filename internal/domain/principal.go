package domain

// Principal is an identity the identity provider has vouched for. Token is
// the bearer token it was verified from.
type Principal struct {
	Token  string
	UserID string
	Email  string
}
