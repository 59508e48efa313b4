package refresh

import "github.com/viant/bearer/auth/credential"

// Outcome is the result of a refresh: either Refreshed with the new pair or Failed with the cause
type Outcome struct {
	Pair *credential.Pair
	Err  error
}

// Refreshed creates a successful outcome
func Refreshed(pair *credential.Pair) Outcome {
	return Outcome{Pair: pair}
}

// Failed creates a failed outcome
func Failed(cause error) Outcome {
	return Outcome{Err: cause}
}

// Refreshed reports a successful refresh
func (o Outcome) Refreshed() bool {
	return o.Err == nil && o.Pair != nil
}
