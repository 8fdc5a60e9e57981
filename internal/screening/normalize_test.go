package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/insurance/screening-service/internal/domain"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "John Smith", "JOHN SMITH"},
		{"diacritics", "José María Aznar", "JOSE MARIA AZNAR"},
		{"cedilla and tilde", "Conceição Gonçalves", "CONCEICAO GONCALVES"},
		{"whitespace collapsed", "  Anna \t  de  Souza \n", "ANNA DE SOUZA"},
		{"already normalized", "MARIA SILVA", "MARIA SILVA"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeName(tc.in)
			assert.Equal(t, tc.want, got)
			// Normalization must be idempotent.
			assert.Equal(t, got, NormalizeName(got))
		})
	}
}

func TestNormalizeID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"separators dropped", "12.345.678-90", "1234567890"},
		{"spaces dropped", " AB 123 456 ", "AB123456"},
		{"lowercased letters", "ab123456", "AB123456"},
		{"equivalent spellings", "12.345-6", NormalizeID("123456")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeID(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, NormalizeID(got))
		})
	}
}

func TestNormalizeIdentityNeverAbsent(t *testing.T) {
	q := NormalizeIdentity(domain.QueryIdentity{FullName: "José Silva"})

	assert.Equal(t, "JOSE SILVA", q.FullNameNorm)
	assert.Equal(t, "", q.NationalIDNorm)
	assert.Equal(t, "", q.PassportNorm)
	assert.Equal(t, "", q.ResidentCardNorm)
	assert.Equal(t, "", q.CountryNorm)
	assert.True(t, q.HasKey())

	assert.False(t, NormalizeIdentity(domain.QueryIdentity{}).HasKey())
}
