// Package fees computes transaction fees from tiered band tables.
// Amounts and fees are int64 cents.
package fees

import "math"

// Band is an inclusive [Min, Max] amount range mapped to a flat fee.
type Band struct {
	Min, Max, Fee int64
}

// Schedule is an ordered, non-overlapping list of bands. Amounts that
// match no band pay the Overflow fee. The production tables keep the
// historical catch-all of 0; operators can raise Overflow instead of the
// table being silently "fixed".
type Schedule struct {
	Bands    []Band
	Overflow int64
}

// Fee returns the fee for amount, scanning bands in order.
func (s Schedule) Fee(amount int64) int64 {
	for _, b := range s.Bands {
		if amount >= b.Min && amount <= b.Max {
			return b.Fee
		}
	}
	return s.Overflow
}

// Withdrawal is the agent-withdrawal schedule, in cents.
var Withdrawal = Schedule{Bands: []Band{
	{50_00, 90_00, 0},
	{91_00, 200_00, 12_00},
	{201_00, 500_00, 15_00},
	{501_00, 1_000_00, 28_00},
	{1_001_00, 1_500_00, 40_00},
	{1_501_00, 2_500_00, 50_00},
	{2_501_00, 3_500_00, 55_00},
	{3_501_00, 5_000_00, 60_00},
	{5_001_00, 7_500_00, 75_00},
	{7_501_00, 10_000_00, 85_00},
	{10_001_00, 15_000_00, 100_00},
	{15_001_00, 20_000_00, 110_00},
	{20_001_00, 35_000_00, 120_00},
	{35_001_00, 50_000_00, 150_00},
	{50_001_00, 100_000_00, 200_00},
	{100_001_00, 150_000_00, 250_00},
	{150_001_00, 300_000_00, 300_00},
}}

// Transfer is the peer-transfer schedule, in cents. The terminal band is
// a 100 flat fee for everything above 10,000.
var Transfer = Schedule{Bands: []Band{
	{0, 100_00, 0},
	{101_00, 500_00, 7_00},
	{501_00, 1_000_00, 13_00},
	{1_001_00, 5_000_00, 25_00},
	{5_001_00, 10_000_00, 50_00},
	{10_000_01, math.MaxInt64, 100_00},
}}

// ForWithdrawal returns the agent-withdrawal fee for amount.
func ForWithdrawal(amount int64) int64 { return Withdrawal.Fee(amount) }

// ForTransfer returns the peer-transfer fee for amount.
func ForTransfer(amount int64) int64 { return Transfer.Fee(amount) }
