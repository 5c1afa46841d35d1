package test

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"veil/pkg"
)

const jsonTestData = `{
  "customers": [
    {
      "id": "CUST001",
      "personal_info": {
        "first_name": "John",
        "last_name": "Doe",
        "date_of_birth": "1985-03-15",
        "ssn": "123-456-7890"
      },
      "contact_details": {
        "email": "john.doe@example.com",
        "phone": "555-0101",
        "address": {
          "street": "123 Maple Street",
          "city": "Anytown",
          "state": "CA",
          "zip_code": "90210"
        }
      },
      "financial_data": {
        "account_balance": 15230.55,
        "credit_card": {
          "card_number": "4111222233334444",
          "expiry_date": "2026-12",
          "cvv": "123"
        },
        "last_transaction_amount": 250.75
      },
      "login_info": {
        "username": "johndoe85",
        "password": "S3cureP@ssw0rd!",
        "last_login_ip": "192.168.1.101"
      }
    }
  ]
}`

func TestJSONObfuscator_EndToEnd(t *testing.T) {
	obfuscator, err := pkg.NewBuilder().
		WithProperty("password", pkg.FixedLength(3)).
		WithProperty("ssn", pkg.FixedValue("<redacted>")).
		WithProperty("credit_card", pkg.FixedLength(3)).
		WithProperty("address", pkg.FixedLength(3), pkg.ForObjects(pkg.ModeInherit)).
		WithProperty("username", pkg.None).
		Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, obfuscator.Obfuscate(strings.NewReader(jsonTestData), &buf))
	output := buf.String()

	expected := []string{
		`"password": "***"`,
		`"ssn": "<redacted>"`,
		`"credit_card": ***`,
		`"street": "***"`,
		`"city": "***"`,
		`"zip_code": "***"`,
		`"username": "johndoe85"`,
		`"id": "CUST001"`,
		`"account_balance": 15230.55`,
	}
	for _, want := range expected {
		require.Contains(t, output, want)
	}

	notExpected := []string{
		"S3cureP@ssw0rd!",
		"123-456-7890",
		"4111222233334444",
		"123 Maple Street",
		"90210",
	}
	for _, leak := range notExpected {
		require.NotContains(t, output, leak)
	}
}

func TestJSONObfuscator_EndToEndValidJSON(t *testing.T) {
	obfuscator, err := pkg.NewBuilder().
		ProduceValidJSON(true).
		WithProperty("password", pkg.FixedLength(3)).
		WithProperty("credit_card", pkg.FixedLength(3)).
		WithProperty("account_balance", pkg.FixedLength(3)).
		Build()
	require.NoError(t, err)

	output := obfuscator.ObfuscateString(jsonTestData)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &doc))

	customers := doc["customers"].([]any)
	customer := customers[0].(map[string]any)

	login := customer["login_info"].(map[string]any)
	require.Equal(t, "***", login["password"])

	financial := customer["financial_data"].(map[string]any)
	require.Equal(t, "***", financial["credit_card"], "the whole container collapses to one masked string")
	require.Equal(t, "***", financial["account_balance"], "masked numbers become strings")

	personal := customer["personal_info"].(map[string]any)
	require.Equal(t, "John", personal["first_name"])
}

func TestJSONObfuscator_EndToEndRealistic(t *testing.T) {
	obfuscator, err := pkg.NewBuilder().
		WithProperty("email", pkg.NewRealistic(pkg.Hashed([]byte("test-salt")))).
		WithProperty("first_name", pkg.NewRealistic(pkg.Hashed([]byte("test-salt")))).
		Build()
	require.NoError(t, err)

	output := obfuscator.ObfuscateString(jsonTestData)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &doc))

	customer := doc["customers"].([]any)[0].(map[string]any)
	contact := customer["contact_details"].(map[string]any)

	email := contact["email"].(string)
	require.NotEqual(t, "john.doe@example.com", email)
	require.Regexp(t, regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`), email)

	// Deterministic masking: a second run gives an identical document.
	require.Equal(t, output, obfuscator.ObfuscateString(jsonTestData))
}

func TestJSONObfuscator_EndToEndCompactRoundTrip(t *testing.T) {
	obfuscator, err := pkg.NewBuilder().
		WithPrettyPrinting(false).
		WithProperty("password", pkg.FixedLength(3)).
		Build()
	require.NoError(t, err)

	compact := `{"login":{"username":"johndoe85","password":"S3cureP@ssw0rd!"},"active":true}`
	require.Equal(t,
		`{"login":{"username":"johndoe85","password":"***"},"active":true}`,
		obfuscator.ObfuscateString(compact))

	// Without matching properties the compact form survives byte for byte.
	plain, err := pkg.NewBuilder().
		WithPrettyPrinting(false).
		WithProperty("nothing", pkg.FixedLength(3)).
		Build()
	require.NoError(t, err)
	require.Equal(t, compact, plain.ObfuscateString(compact))
}
