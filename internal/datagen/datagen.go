// Package datagen builds synthetic customer and transaction datasets
// for demos, load tests and development. Generation is fully seeded,
// so the same options always produce the same dataset. No real
// customer data is involved.
package datagen

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

// DefaultSeed is used when the caller does not ask for variation.
const DefaultSeed = 42

// DefaultCustomers matches the bundled sample dataset size.
const DefaultCustomers = 20

// Annual turnover ranges in N$. The gap around 1,300,000 keeps every
// generated value strictly on one side of the deposit fee threshold.
const (
	turnoverBelowLo = 200_000
	turnoverBelowHi = 1_299_999
	turnoverAboveLo = 1_300_001
	turnoverAboveHi = 8_000_000
)

var (
	posMerchants     = []string{"groceries", "fuel", "retail_cashout", "ecommerce"}
	cashoutMerchants = []string{"shoprite", "spar", "clicks", "pep"}
)

// windowStart anchors every timestamp to one statement month.
var windowStart = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// Options control dataset size and reproducibility. Zero values fall
// back to the defaults.
type Options struct {
	Customers int
	Seed      int64
}

// Generate produces n customers and one statement month of
// transactions for each. Customers follow one of four behaviour
// archetypes (digital_first, cash_heavy, utilities_focused,
// mixed_usage) so every downstream signal has material to fire on.
func Generate(opts Options) ([]*domain.Customer, []*domain.Transaction) {
	n := opts.Customers
	if n <= 0 {
		n = DefaultCustomers
	}
	seed := opts.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	g := &generator{rng: rand.New(rand.NewSource(seed))}

	pool := segmentPool()
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	customers := make([]*domain.Customer, 0, n)
	txns := make([]*domain.Transaction, 0, n*40)
	for i := 1; i <= n; i++ {
		c := g.customer(i, pool[(i-1)%len(pool)])
		customers = append(customers, c)
		txns = append(txns, g.statementMonth(c)...)
	}
	return customers, txns
}

// segmentPool is the deterministic 50/30/20 split of individual, sme
// and business customers. Generate shuffles a fresh copy per run.
func segmentPool() []domain.Segment {
	pool := make([]domain.Segment, 0, 100)
	for i := 0; i < 50; i++ {
		pool = append(pool, domain.SegmentIndividual)
	}
	for i := 0; i < 30; i++ {
		pool = append(pool, domain.SegmentSME)
	}
	for i := 0; i < 20; i++ {
		pool = append(pool, domain.SegmentBusiness)
	}
	return pool
}

type generator struct {
	rng  *rand.Rand
	next int
}

func (g *generator) id() string {
	g.next++
	return fmt.Sprintf("TXN_%05d", g.next)
}

func (g *generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *generator) amount(lo, hi float64) float64 {
	return round2(g.uniform(lo, hi))
}

func (g *generator) pick(choices []string) string {
	return choices[g.rng.Intn(len(choices))]
}

func (g *generator) weighted(choices []string, weights []int) string {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := g.rng.Intn(total)
	for i, w := range weights {
		if n < w {
			return choices[i]
		}
		n -= w
	}
	return choices[len(choices)-1]
}

func (g *generator) stamp(dayLo, dayHi, hourLo, hourHi int) time.Time {
	return windowStart.Add(
		time.Duration(g.between(dayLo, dayHi))*24*time.Hour +
			time.Duration(g.between(hourLo, hourHi))*time.Hour +
			time.Duration(g.between(0, 59))*time.Minute)
}

func (g *generator) customer(i int, segment domain.Segment) *domain.Customer {
	c := &domain.Customer{
		ID:                 fmt.Sprintf("CUST_%03d", i),
		Age:                g.between(22, 58),
		Residency:          domain.ResidencyNamibian,
		IncomeGrossMonthly: g.amount(4500, 35000),
		Segment:            segment,
		AccountCategory:    "everyday",
		AccountTypeID:      "silver_payu",
	}
	// Turnover is on file for ~60% of sme/business customers, split
	// evenly below and above the threshold. Individuals never carry
	// one, and the remaining 40% stay nil to exercise the
	// unknown-eligibility path.
	if segment != domain.SegmentIndividual && g.rng.Float64() < 0.60 {
		var v float64
		if g.rng.Float64() < 0.50 {
			v = g.amount(turnoverBelowLo, turnoverBelowHi)
		} else {
			v = g.amount(turnoverAboveLo, turnoverAboveHi)
		}
		c.AnnualTurnover = &v
	}
	return c
}

// statementMonth generates one month of activity shaped by a randomly
// assigned archetype. Counts mirror the upstream sample distributions:
// cash_heavy always clears the free ATM tier, mixed_usage always has
// two cashouts, and only sme/business customers deposit cash.
func (g *generator) statementMonth(c *domain.Customer) []*domain.Transaction {
	archetype := g.weighted(
		[]string{domain.TagDigitalFirst, domain.TagCashHeavy, domain.TagUtilitiesFocused, domain.TagMixedUsage},
		[]int{35, 25, 20, 20},
	)

	var digital, atm, utility, cashout int
	switch archetype {
	case domain.TagDigitalFirst:
		n := g.between(35, 55)
		digital = int(float64(n) * g.uniform(0.75, 0.90))
		atm = g.between(1, 3)
		utility = n - digital - atm - 1
	case domain.TagCashHeavy:
		n := g.between(25, 45)
		atm = int(float64(n) * g.uniform(0.40, 0.55))
		if atm < 4 {
			atm = 4
		}
		cashout = g.between(3, 8)
		digital = g.between(5, 10)
		utility = n - digital - atm - cashout - 1
	case domain.TagUtilitiesFocused:
		n := g.between(30, 50)
		utility = g.between(5, 10)
		atm = g.between(3, 8)
		digital = n - utility - atm - 1
		cashout = g.between(1, 2)
	default:
		n := g.between(30, 50)
		digital = int(float64(n) * g.uniform(0.35, 0.55))
		atm = int(float64(n) * g.uniform(0.20, 0.35))
		utility = n - digital - atm - 1
		cashout = 2
	}
	if digital < 0 {
		digital = 0
	}
	if utility < 0 {
		utility = 0
	}

	out := make([]*domain.Transaction, 0, digital+atm+utility+cashout+6)
	out = append(out, g.income(c))
	for i := 0; i < digital; i++ {
		out = append(out, g.digitalPayment(c))
	}
	for i := 0; i < atm; i++ {
		out = append(out, g.withdrawal(c))
	}
	for i := 0; i < utility; i++ {
		out = append(out, g.utilityPayment(c))
	}
	for i := 0; i < cashout; i++ {
		out = append(out, g.cashout(c))
	}
	if c.Segment != domain.SegmentIndividual {
		deposits := g.between(2, 5)
		for i := 0; i < deposits; i++ {
			out = append(out, g.deposit(c))
		}
	}
	return out
}

// income is the salary credit, always the first transaction of the
// month. Inflows carry negative amounts.
func (g *generator) income(c *domain.Customer) *domain.Transaction {
	return &domain.Transaction{
		ID:         g.id(),
		CustomerID: c.ID,
		Kind:       domain.TxnIncome,
		Amount:     -c.IncomeGrossMonthly,
		Timestamp:  g.stamp(0, 3, 0, 23),
	}
}

func (g *generator) digitalPayment(c *domain.Customer) *domain.Transaction {
	t := &domain.Transaction{
		ID:         g.id(),
		CustomerID: c.ID,
		Amount:     g.amount(50, 800),
		Channel:    domain.ChannelOnline,
		Merchant:   "transfer",
		Timestamp:  g.stamp(1, 30, 0, 23),
	}
	switch g.weighted(
		[]string{domain.TxnPOSPurchase, domain.TxnThirdPartyPayment, domain.TxnEFTTransfer},
		[]int{40, 20, 40},
	) {
	case domain.TxnPOSPurchase:
		t.Kind = domain.TxnPOSPurchase
		t.Channel = domain.ChannelPOS
		t.Merchant = g.pick(posMerchants)
	case domain.TxnThirdPartyPayment:
		t.Kind = domain.TxnThirdPartyPayment
	default:
		t.Kind = domain.TxnEFTTransfer
		t.TransferScope = domain.TransferInternal
		if g.rng.Float64() >= 0.70 {
			t.TransferScope = domain.TransferExternal
		}
	}
	return t
}

func (g *generator) withdrawal(c *domain.Customer) *domain.Transaction {
	owner := domain.OwnerOnUs
	if g.rng.Float64() >= 0.70 {
		owner = domain.OwnerOffUs
	}
	return &domain.Transaction{
		ID:         g.id(),
		CustomerID: c.ID,
		Kind:       domain.TxnATMWithdrawal,
		Amount:     g.amount(200, 1500),
		Channel:    domain.ChannelATM,
		ATMOwner:   owner,
		Timestamp:  g.stamp(1, 30, 0, 23),
	}
}

func (g *generator) utilityPayment(c *domain.Customer) *domain.Transaction {
	t := &domain.Transaction{
		ID:         g.id(),
		CustomerID: c.ID,
		Channel:    domain.ChannelOnline,
		Timestamp:  g.stamp(1, 30, 0, 23),
	}
	if g.rng.Intn(2) == 0 {
		t.Kind = domain.TxnAirtimePurchase
		t.Amount = g.amount(20, 150)
		t.Merchant = "airtime"
	} else {
		t.Kind = domain.TxnElectricityPurchase
		t.Amount = g.amount(100, 600)
		t.Merchant = "utilities"
	}
	return t
}

func (g *generator) cashout(c *domain.Customer) *domain.Transaction {
	return &domain.Transaction{
		ID:         g.id(),
		CustomerID: c.ID,
		Kind:       domain.TxnCashout,
		Amount:     g.amount(100, 1000),
		Channel:    domain.ChannelPOS,
		Merchant:   g.pick(cashoutMerchants),
		Timestamp:  g.stamp(1, 30, 8, 20),
	}
}

// deposit is a branch teller cash deposit, stamped inside branch
// hours.
func (g *generator) deposit(c *domain.Customer) *domain.Transaction {
	return &domain.Transaction{
		ID:         g.id(),
		CustomerID: c.ID,
		Kind:       domain.TxnCashDeposit,
		Amount:     g.amount(500, 20_000),
		Channel:    domain.ChannelBranch,
		Merchant:   "branch_teller",
		Timestamp:  g.stamp(1, 30, 8, 16),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
