// Package common contains shared constants, sentinel errors and random
// helpers used across gophauth components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// session token on authenticated requests.
const AccessTokenHeaderName = "access_token"

// Access codes are drawn from [AccessCodeMin, AccessCodeMax].
const (
	AccessCodeMin = 100001
	AccessCodeMax = 999999
)
