package phone

import (
	"errors"
	"testing"

	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_HappyPath(t *testing.T) {
	got, err := Normalize("202-555-0123", "US")
	require.NoError(t, err)
	assert.Equal(t, "+12025550123", got)
}

func TestNormalize_UnknownCountry(t *testing.T) {
	_, err := Normalize("2025550123", "XX")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCountry))
}

func TestNormalize_TooShortNationalNumber(t *testing.T) {
	_, err := Normalize("123", "US")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidPhoneLength))
}

func TestNormalize_TooShortForE164(t *testing.T) {
	// 4 national digits pass the length check but +1XXXX is shorter than
	// the 10-digit E.164 minimum.
	_, err := Normalize("2345", "US")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidPhoneFormat))
}

func TestNormalize_StripsRepeatedDialCode(t *testing.T) {
	got, err := Normalize("+91 98765 43210", "IN")
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", got)
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, tc := range []struct {
		number  string
		country string
	}{
		{"+12025550123", "US"},
		{"+919876543210", "IN"},
		{"+447911123456", "GB"},
	} {
		once, err := Normalize(tc.number, tc.country)
		require.NoError(t, err, tc.number)
		twice, err := Normalize(once, tc.country)
		require.NoError(t, err, tc.number)
		assert.Equal(t, once, twice, tc.number)
		assert.Equal(t, tc.number, once, tc.number)
	}
}

func TestNormalize_LeadingZeroEquivalence(t *testing.T) {
	for country, national := range map[string]string{
		"IN": "9876543210",
		"GB": "7911123456",
		"AU": "412345678",
		"DE": "15123456789",
	} {
		withZero, err := Normalize("0"+national, country)
		require.NoError(t, err, country)
		withoutZero, err := Normalize(national, country)
		require.NoError(t, err, country)
		assert.Equal(t, withoutZero, withZero, country)
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	for country, full := range map[string]string{
		"US": "+12025550123",
		"IN": "+919876543210",
		"SG": "+6591234567",
		"AE": "+971501234567",
	} {
		national := StripPrefix(full, country)
		got, err := Normalize(national, country)
		require.NoError(t, err, country)
		assert.Equal(t, full, got, country)
	}
}

func TestStripPrefix_NoPrefix(t *testing.T) {
	assert.Equal(t, "9876543210", StripPrefix("9876543210", "IN"))
	assert.Equal(t, "+919876543210", StripPrefix("+919876543210", "XX"))
}

func TestNormalize_OutputAlwaysE164(t *testing.T) {
	for _, tc := range []struct {
		raw     string
		country string
	}{
		{"(202) 555-0123", "US"},
		{"098 7654 3210", "IN"},
		{"91234567", "SG"},
	} {
		got, err := Normalize(tc.raw, tc.country)
		require.NoError(t, err, tc.raw)
		assert.Regexp(t, `^\+\d{10,15}$`, got, tc.raw)
	}
}

func TestCountries_ReturnsCopy(t *testing.T) {
	table := Countries()
	require.NotEmpty(t, table)
	table["IN"] = Country{ID: "IN", DialCode: "0"}
	fresh := Countries()
	assert.Equal(t, "91", fresh["IN"].DialCode)
}
