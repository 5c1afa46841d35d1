package pkg

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"github.com/jacoelho/banking/iban"
	"github.com/nyaruka/phonenumbers"
	"github.com/theplant/luhn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type seeder interface {
	SeedFaker(f *gofakeit.Faker, input string)
	SeedFakerForWord(f *gofakeit.Faker, word string)
}

type hashedSeeder struct {
	salt []byte
}

func (hs *hashedSeeder) SeedFaker(f *gofakeit.Faker, input string) {
	f.Rand.Seed(hs.createSeed(input))
}

func (hs *hashedSeeder) SeedFakerForWord(f *gofakeit.Faker, word string) {
	f.Rand.Seed(hs.createSeed(word))
}

func (hs *hashedSeeder) createSeed(s string) int64 {
	mac := hmac.New(sha256.New, hs.salt)
	mac.Write([]byte(s))
	seedBytes := mac.Sum(nil)
	return int64(binary.BigEndian.Uint64(seedBytes))
}

type randomSeeder struct{}

func (rs *randomSeeder) SeedFaker(f *gofakeit.Faker, input string)       { /* No-op */ }
func (rs *randomSeeder) SeedFakerForWord(f *gofakeit.Faker, word string) { /* No-op */ }

// MaskingStrategy configures how the realistic obfuscator picks fakes.
type MaskingStrategy func(*realistic)

// Hashed makes masking deterministic: identical input spans produce
// identical fakes, seeded from an HMAC of the span with the given salt.
// Results are memoized.
func Hashed(salt []byte) MaskingStrategy {
	return func(r *realistic) {
		r.seeder = &hashedSeeder{salt: salt}
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 100_000,
			MaxCost:     1 << 24,
			BufferItems: 64,
		})
		if err != nil {
			panic("veil: building mask cache: " + err.Error())
		}
		r.cache = cache
	}
}

// Random makes masking non-deterministic.
func Random() MaskingStrategy {
	return func(r *realistic) {
		r.seeder = &randomSeeder{}
	}
}

// realistic replaces spans with realistic-looking fakes of the same shape:
// numbers stay numbers of the same width, emails stay emails, dates stay
// dates in the same layout, and so on.
type realistic struct {
	mu           sync.Mutex
	faker        *gofakeit.Faker
	seeder       seeder
	cache        *ristretto.Cache
	dateLayouts  []string
	emailRegex   *regexp.Regexp
	numLikeRegex *regexp.Regexp
	digitsRegex  *regexp.Regexp
}

// NewRealistic returns an obfuscator producing realistic fakes. One instance
// may be shared; calls are serialized internally because the underlying
// faker is seeded per span.
func NewRealistic(strategy MaskingStrategy) Obfuscator {
	r := &realistic{
		dateLayouts: []string{
			time.RFC3339,
			time.RFC3339Nano,
			"2006-01-02T15:04:05Z07:00",
			"2006-01-02 15:04:05",
			"2006-01-02",
			"2006-01",
			"01/02/2006",
			time.RFC1123,
		},
		emailRegex:   regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
		numLikeRegex: regexp.MustCompile(`^[\d\s-]+$`),
		digitsRegex:  regexp.MustCompile(`^\d+$`),
	}
	strategy(r)
	if _, ok := r.seeder.(*hashedSeeder); ok {
		r.faker = gofakeit.NewUnlocked(1)
	} else {
		r.faker = gofakeit.New(0)
	}
	return r
}

func (r *realistic) StreamTo(dest io.Writer) io.WriteCloser {
	return newObfuscateOnClose(r, dest)
}

func (r *realistic) ObfuscateText(s string) string {
	if r.cache != nil {
		if cached, ok := r.cache.Get(s); ok {
			return cached.(string)
		}
	}

	r.mu.Lock()
	masked := r.mask(s)
	r.mu.Unlock()

	if r.cache != nil {
		r.cache.Set(s, masked, int64(len(masked)))
	}
	return masked
}

func (r *realistic) mask(s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	r.seeder.SeedFaker(r.faker, s)

	// Bare scalar literals keep their kind.
	switch s {
	case "null":
		return s
	case "true", "false":
		return strconv.FormatBool(r.faker.Bool())
	}

	// 1. Unambiguous, non-numeric formats first.
	if _, err := uuid.Parse(s); err == nil && len(s) == 36 {
		return r.faker.UUID()
	}
	if _, err := url.ParseRequestURI(s); err == nil {
		return r.faker.URL()
	}
	if r.emailRegex.MatchString(s) {
		return r.faker.Email()
	}
	if _, err := net.ParseMAC(s); err == nil {
		return r.faker.MacAddress()
	}
	if ip := net.ParseIP(s); ip != nil {
		if ip.To4() != nil {
			return r.faker.IPv4Address()
		}
		return r.faker.IPv6Address()
	}
	if masked, ok := r.maskIBAN(s); ok {
		return masked
	}

	// 2. Pure numeric strings, with card numbers handled first so they stay
	// structurally valid.
	if masked, ok := r.maskCardNumber(s); ok {
		return masked
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return r.faker.Numerify(strings.Repeat("#", len(s)))
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		parts := strings.Split(s, ".")
		integerPart := parts[0]
		fractionalPart := ""
		if len(parts) > 1 {
			fractionalPart = parts[1]
		}
		template := strings.Repeat("#", len(integerPart))
		if fractionalPart != "" {
			template += "." + strings.Repeat("#", len(fractionalPart))
		}
		return r.faker.Numerify(template)
	}

	// 3. Specific date layouts.
	for _, layout := range r.dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return r.faker.Date().Format(layout)
		}
	}

	// 4. Phone numbers and other mixed-character numeric strings.
	if num, err := phonenumbers.Parse(s, "US"); err == nil && phonenumbers.IsValidNumber(num) {
		return r.maskDigits(s)
	}
	if r.numLikeRegex.MatchString(s) {
		return r.maskDigits(s)
	}

	// 5. Greedy date parser.
	if _, err := dateparse.ParseAny(s); err == nil {
		return r.faker.Date().Format(time.RFC3339)
	}

	// 6. No specific rule matched; mask word by word.
	words := strings.Split(s, " ")
	maskedWords := make([]string, len(words))
	caser := cases.Title(language.English)
	for i, word := range words {
		r.seeder.SeedFakerForWord(r.faker, word)
		maskedWord := r.faker.Word()
		if len(word) > 0 && word[0] >= 'A' && word[0] <= 'Z' {
			maskedWords[i] = caser.String(maskedWord)
		} else {
			maskedWords[i] = maskedWord
		}
	}
	return strings.Join(maskedWords, " ")
}

// maskIBAN replaces a valid IBAN with a generated one from the same country.
func (r *realistic) maskIBAN(s string) (string, bool) {
	if len(s) < 15 || len(s) > 34 {
		return "", false
	}
	if err := iban.Validate(s); err != nil {
		return "", false
	}
	generated, err := iban.Generate(s[:2])
	if err != nil {
		return r.maskDigits(s), true
	}
	return generated, true
}

// maskCardNumber replaces a Luhn-valid card number with a fresh fake card.
func (r *realistic) maskCardNumber(s string) (string, bool) {
	if len(s) < 13 || len(s) > 19 || !r.digitsRegex.MatchString(s) {
		return "", false
	}
	n, err := strconv.Atoi(s)
	if err != nil || !luhn.Valid(n) {
		return "", false
	}
	return r.faker.CreditCardNumber(&gofakeit.CreditCardOptions{}), true
}

// maskDigits swaps every digit for a random one, keeping all other
// characters in place.
func (r *realistic) maskDigits(s string) string {
	var result strings.Builder
	for _, char := range s {
		if char >= '0' && char <= '9' {
			result.WriteString(strconv.Itoa(r.faker.Rand.Intn(10)))
		} else {
			result.WriteRune(char)
		}
	}
	return result.String()
}
