package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gearindex/marketpulse/internal/model"
)

// TestDataFactory provides methods for generating dynamic test data
type TestDataFactory struct {
	rand *rand.Rand
}

// NewTestDataFactory creates a new test data factory with a seeded random generator
func NewTestDataFactory(seed int64) *TestDataFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TestDataFactory{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// GenerateTestToken generates a random test token
func (f *TestDataFactory) GenerateTestToken() string {
	return fmt.Sprintf("test-token-%d", f.rand.Int63())
}

// GenerateTestBrand picks a random gear brand
func (f *TestDataFactory) GenerateTestBrand() string {
	brands := []string{"Roland", "Korg", "Moog", "Yamaha", "Sequential", "Elektron"}
	return brands[f.rand.Intn(len(brands))]
}

// GenerateTestModel picks a random gear model name
func (f *TestDataFactory) GenerateTestModel() string {
	models := []string{"TB-03", "MS-20", "Minitaur", "DX7", "Prophet-6", "Digitakt"}
	return models[f.rand.Intn(len(models))]
}

// GenerateTestListingURL generates a marketplace listing URL with an
// embedded numeric id
func (f *TestDataFactory) GenerateTestListingURL() string {
	return fmt.Sprintf("https://reverb.test.local/item/%d", f.rand.Int63n(99999999))
}

// GenerateTestPrice generates a plausible secondhand price
func (f *TestDataFactory) GenerateTestPrice() float64 {
	return float64(f.rand.Intn(2000)+50) + 0.99
}

// GenerateTestDate generates a random date within the last year
func (f *TestDataFactory) GenerateTestDate() time.Time {
	days := f.rand.Intn(365)
	return time.Now().AddDate(0, 0, -days)
}

// GenerateTestCondition generates a random listing condition
func (f *TestDataFactory) GenerateTestCondition() string {
	conditions := []string{"Mint", "Excellent", "Very Good", "Good", "Fair"}
	return conditions[f.rand.Intn(len(conditions))]
}

// GenerateTestEntry builds a catalog entry without market data
func (f *TestDataFactory) GenerateTestEntry() *model.CatalogEntry {
	return &model.CatalogEntry{
		Brand: f.GenerateTestBrand(),
		Model: f.GenerateTestModel(),
	}
}

// GenerateTestListings builds n listings for a query, all in currency
func (f *TestDataFactory) GenerateTestListings(query, currency string, n int) []model.Listing {
	listings := make([]model.Listing, n)
	for i := range listings {
		listings[i] = model.Listing{
			Title:     fmt.Sprintf("%s #%d", query, i+1),
			Price:     f.GenerateTestPrice(),
			Currency:  currency,
			Date:      f.GenerateTestDate(),
			Source:    "factory",
			Condition: f.GenerateTestCondition(),
		}
	}
	return listings
}
