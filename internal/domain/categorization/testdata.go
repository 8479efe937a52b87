package categorization

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TestDataGenerator produces realistic transaction fixtures using gofakeit.
// Seeded generators are reproducible; used by tests and the demo CLI.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a specific seed.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// merchantPool maps fixture merchants to their expected categorization.
var merchantPool = []struct {
	entity      string
	category    string
	subcategory string
}{
	{"STARBUCKS #%04d", "Food & Dining", "Coffee Shops"},
	{"WALMART STORE %04d", "Groceries", ""},
	{"NETFLIX.COM", "Entertainment", "Streaming"},
	{"SHELL OIL %04d", "Transportation", "Gas"},
	{"AMAZON MKTPLACE", "Shopping", "Online"},
	{"UBER TRIP %04d", "Transportation", "Rideshare"},
	{"CVS/PHARMACY #%04d", "Health & Fitness", "Pharmacy"},
	{"PAYROLL DEPOSIT", "Income", "Salary"},
}

// Transaction generates one uncategorized transaction with a plausible
// merchant string and amount.
func (g *TestDataGenerator) Transaction() Transaction {
	pick := merchantPool[g.faker.Number(0, len(merchantPool)-1)]

	amount := decimal.NewFromFloat(-g.faker.Float64Range(2, 250)).Round(2)
	if pick.category == CategoryIncome {
		amount = decimal.NewFromFloat(g.faker.Float64Range(1000, 5000)).Round(2)
	}

	return Transaction{
		ID:       uuid.New(),
		Date:     g.faker.DateRange(time.Now().AddDate(0, -6, 0), time.Now()),
		Entity:   formatEntity(pick.entity, g.faker.Number(1, 9999)),
		Amount:   amount,
		Currency: "USD",
	}
}

// formatEntity fills the numeric placeholder in pooled merchant patterns.
func formatEntity(pattern string, n int) string {
	if !strings.Contains(pattern, "%") {
		return pattern
	}
	return fmt.Sprintf(pattern, n)
}

// CategorizedHistory generates n transactions already labeled with their
// expected categories, suitable as pipeline history or training data.
func (g *TestDataGenerator) CategorizedHistory(n int) []Transaction {
	out := make([]Transaction, n)
	for i := range out {
		pick := merchantPool[i%len(merchantPool)]
		tx := g.Transaction()
		tx.Entity = formatEntity(pick.entity, g.faker.Number(1, 9999))
		tx.Category = pick.category
		tx.Subcategory = pick.subcategory
		tx.Confidence = 100
		tx.IsManuallyEdited = true
		out[i] = tx
	}
	return out
}
