package usecase

import (
	"testing"

	"go.uber.org/goleak"
)

// The use case layer must never leak goroutines: everything here is
// synchronous and lock lifetimes are bounded by the request.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
