package api

import (
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
)

// price is the USD cost per million input and output tokens.
type price struct {
	input, output float64
}

// familyPrices is checked in order against the model name.
var familyPrices = []struct {
	family string
	price  price
}{
	{"opus-4-5", price{5, 25}},
	{"opus", price{15, 75}},
	{"haiku-4-5", price{1, 5}},
	{"haiku", price{0.8, 4}},
	{"sonnet", price{3, 15}},
}

func priceFor(model anthropic.Model) price {
	name := strings.ToLower(string(model))
	for _, fp := range familyPrices {
		if strings.Contains(name, fp.family) {
			return fp.price
		}
	}
	return price{3, 15}
}

// TokenTracker accumulates token usage across calls. It is safe for
// concurrent use.
type TokenTracker struct {
	mu        sync.Mutex
	price     price
	usage     Usage
	calls     int
	truncated int
}

// NewTokenTracker creates a tracker priced for model.
func NewTokenTracker(model anthropic.Model) *TokenTracker {
	return &TokenTracker{price: priceFor(model)}
}

// Record adds the usage of one call. A call that stopped on the token
// ceiling also counts as truncated.
func (t *TokenTracker) Record(u Usage, stopReason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.InputTokens += u.InputTokens
	t.usage.OutputTokens += u.OutputTokens
	t.calls++
	if stopReason == string(anthropic.StopReasonMaxTokens) {
		t.truncated++
	}
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage.InputTokens, t.usage.OutputTokens
}

// Calls returns the number of calls recorded.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Truncated returns the number of calls cut off by the token ceiling.
func (t *TokenTracker) Truncated() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.truncated
}

// Reset clears all tracked usage.
func (t *TokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = Usage{}
	t.calls = 0
	t.truncated = 0
}

// Cost estimates the cost in USD from list prices of the model family.
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.usage.InputTokens)/1_000_000*t.price.input +
		float64(t.usage.OutputTokens)/1_000_000*t.price.output
}
