package service

import (
	"math"
	"testing"
	"time"

	"magnum_stars/internal/domain"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestComputeQuote_BalancedReserve(t *testing.T) {
	res := &domain.Reserve{MagnumCoins: 1_000_000, Stars: 1_000_000}

	q, err := computeQuote(domain.MagnumToStars, 100, 0.025, res)
	if err != nil {
		t.Fatalf("computeQuote: %v", err)
	}

	if !almostEqual(q.Commission, 2.5) {
		t.Fatalf("commission = %v; want 2.5", q.Commission)
	}
	if !almostEqual(q.NetAmount, 97.5) {
		t.Fatalf("netAmount = %v; want 97.5", q.NetAmount)
	}
	if !almostEqual(q.Rate, 1.0) {
		t.Fatalf("rate = %v; want 1.0", q.Rate)
	}
	if !almostEqual(q.Received, 97.5) {
		t.Fatalf("received = %v; want 97.5", q.Received)
	}
}

func TestComputeQuote_Conservation(t *testing.T) {
	cases := []struct {
		name      string
		direction string
		reserve   domain.Reserve
		amount    float64
	}{
		{"balanced", domain.MagnumToStars, domain.Reserve{MagnumCoins: 1_000_000, Stars: 1_000_000}, 100},
		{"stars heavy", domain.MagnumToStars, domain.Reserve{MagnumCoins: 500_000, Stars: 2_000_000}, 37.5},
		{"magnum heavy reverse", domain.StarsToMagnum, domain.Reserve{MagnumCoins: 3_000_000, Stars: 750_000}, 1234.5678},
		{"tiny amount", domain.StarsToMagnum, domain.Reserve{MagnumCoins: 10, Stars: 90}, 1},
	}

	for _, tc := range cases {
		q, err := computeQuote(tc.direction, tc.amount, 0.025, &tc.reserve)
		if err != nil {
			t.Fatalf("%s: computeQuote: %v", tc.name, err)
		}

		var rate float64
		if tc.direction == domain.MagnumToStars {
			rate = tc.reserve.Stars / tc.reserve.MagnumCoins
		} else {
			rate = tc.reserve.MagnumCoins / tc.reserve.Stars
		}
		want := (tc.amount - tc.amount*0.025) * rate
		if !almostEqual(q.Received, want) {
			t.Fatalf("%s: received = %v; want %v", tc.name, q.Received, want)
		}
	}
}

func TestComputeQuote_EmptyPool(t *testing.T) {
	res := &domain.Reserve{MagnumCoins: 0, Stars: 1000}
	if _, err := computeQuote(domain.MagnumToStars, 10, 0.025, res); err != ErrInsufficientReserve {
		t.Fatalf("expected ErrInsufficientReserve, got %v", err)
	}
}

func TestDirectionForPair(t *testing.T) {
	cases := []struct {
		from, to string
		want     string
		wantErr  bool
	}{
		{"magnumCoins", "stars", domain.MagnumToStars, false},
		{"stars", "magnumCoins", domain.StarsToMagnum, false},
		{"stars", "stars", "", true},
		{"magnumCoins", "magnumCoins", "", true},
		{"gems", "stars", "", true},
		{"", "", "", true},
	}

	for _, tc := range cases {
		got, err := directionForPair(tc.from, tc.to)
		if tc.wantErr {
			if err != ErrUnsupportedPair {
				t.Fatalf("directionForPair(%q,%q) err = %v; want ErrUnsupportedPair", tc.from, tc.to, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("directionForPair(%q,%q) = %q, %v; want %q", tc.from, tc.to, got, err, tc.want)
		}
	}
}

func TestRatesFromReserve(t *testing.T) {
	r := ratesFromReserve(&domain.Reserve{MagnumCoins: 2_000_000, Stars: 1_000_000, LastUpdated: time.Now()})
	if !almostEqual(r.MagnumToStars, 0.5) {
		t.Fatalf("magnumToStars = %v; want 0.5", r.MagnumToStars)
	}
	if !almostEqual(r.StarsToMagnum, 2.0) {
		t.Fatalf("starsToMagnum = %v; want 2.0", r.StarsToMagnum)
	}

	// drained pools must not divide by zero
	r = ratesFromReserve(&domain.Reserve{})
	if r.MagnumToStars != 0 || r.StarsToMagnum != 0 {
		t.Fatalf("rates for empty reserve = %v/%v; want 0/0", r.MagnumToStars, r.StarsToMagnum)
	}
}

func TestQuoteMatchesExchangeMath(t *testing.T) {
	// a quote and an exchange over the same reserve state must agree
	res := &domain.Reserve{MagnumCoins: 800_000, Stars: 1_200_000}

	q1, err := computeQuote(domain.MagnumToStars, 250, 0.025, res)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	q2, err := computeQuote(domain.MagnumToStars, 250, 0.025, res)
	if err != nil {
		t.Fatalf("second quote: %v", err)
	}

	if !almostEqual(q1.Received, q2.Received) || !almostEqual(q1.Commission, q2.Commission) {
		t.Fatalf("quotes diverged: %+v vs %+v", q1, q2)
	}
}
