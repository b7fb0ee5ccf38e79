package nip

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hyphens", "123-456-32-18", "1234563218"},
		{"spaces", " 123 456 32 18 ", "1234563218"},
		{"tabs and newlines", "123\t456\n3218", "1234563218"},
		{"non-breaking space", "123\u00a0456\u00a03218", "1234563218"},
		{"byte order mark", "\ufeff1234563218", "1234563218"},
		{"empty", "", ""},
		{"letters untouched", "PL 123-456-32-18", "PL1234563218"},
		{"other punctuation untouched", "123.456/32_18", "123.456/32_18"},
		{"unicode dash untouched", "123–456", "123–456"},
		{"only separators", " - -\t", ""},
		{"unicode letters", "zażółć-gęślą", "zażółćgęślą"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("0123456789 -\tab.,/ą\u00a0")

	for i := 0; i < 500; i++ {
		n := rng.Intn(20)
		var b strings.Builder
		for j := 0; j < n; j++ {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		s := b.String()
		got := Normalize(s)

		assert.NotContains(t, got, " ")
		assert.NotContains(t, got, "-")
		assert.Equal(t, got, Normalize(got), "normalize must be idempotent for %q", s)

		var kept strings.Builder
		for _, r := range s {
			if r != ' ' && r != '-' && r != '\t' && r != '\u00a0' {
				kept.WriteRune(r)
			}
		}
		assert.Equal(t, kept.String(), got, "only separators may be removed from %q", s)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"formatted valid", "123-456-32-18", true},
		{"plain valid", "1234563218", true},
		{"padded valid", "  1234563218  ", true},
		{"spaced valid", "123 456 32 18", true},
		{"check value ten", "1234567890", false},
		{"wrong check digit", "1234563217", false},
		{"too short", "12345", false},
		{"too long", "12345632180", false},
		{"empty", "", false},
		{"letters", "123456321A", false},
		{"country prefix", "PL1234563218", false},
		{"leading zeros valid", "0000000000", true},
		{"full width digits", "１２３４５６３２１８", false},
		{"dotted", "123.456.32.18", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.in))
		})
	}
}

func TestCheckKinds(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"123-456-32-18", nil},
		{"", ErrEmpty},
		{" - ", ErrEmpty},
		{"12345", ErrLength},
		{"123456321800", ErrLength},
		{"12345abcde", ErrNonDigit},
		{"1234567890", ErrChecksum},
		{"1234563219", ErrChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := Check(tt.in)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v want %v", err, tt.want)
		})
	}
}

func TestCheckDigit(t *testing.T) {
	// 1*6+2*5+3*7+4*2+5*3+6*4+3*5+2*6+1*7 = 118, 118 mod 11 = 8
	d, ok := CheckDigit("123456321")
	require.True(t, ok)
	assert.Equal(t, 8, d)

	// 230 mod 11 = 10
	d, ok = CheckDigit("123456789")
	assert.False(t, ok)
	assert.Equal(t, 10, d)

	_, ok = CheckDigit("12345")
	assert.False(t, ok)
	_, ok = CheckDigit("12345678x")
	assert.False(t, ok)
}

func TestValidateAcceptsEveryGeneratedNIP(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	accepted := 0

	for i := 0; i < 1000; i++ {
		digits := make([]byte, Length-1)
		for j := range digits {
			digits[j] = byte('0' + rng.Intn(10))
		}

		check, ok := CheckDigit(string(digits))
		full := string(digits) + string(rune('0'+check%10))

		if !ok {
			assert.False(t, Validate(full), "check value ten must reject %s", full)
			continue
		}
		accepted++

		assert.True(t, Validate(full))
		assert.True(t, Validate(Format(full)))
		assert.True(t, Validate(" "+full[:3]+" - "+full[3:]+"\t"))
		assert.Equal(t, full, Normalize(Format(full)))

		wrong := string(digits) + string(rune('0'+(check+1)%10))
		assert.False(t, Validate(wrong))
	}

	assert.Greater(t, accepted, 0)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "1234563218", "123-456-32-18"},
		{"already formatted", "123-456-32-18", "123-456-32-18"},
		{"spaced", " 123 456 3218", "123-456-32-18"},
		{"invalid checksum still grouped", "1234567890", "123-456-78-90"},
		{"short unchanged", "12345", "12345"},
		{"short with separators unchanged", " 12-345 ", " 12-345 "},
		{"ten letters unchanged", "abcdefghij", "abcdefghij"},
		{"empty unchanged", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestSpecScenarios(t *testing.T) {
	assert.Equal(t, "1234563218", Normalize("123-456-32-18"))
	assert.True(t, Validate("123-456-32-18"))
	assert.False(t, Validate("1234567890"))
	assert.False(t, Validate("12345"))
	assert.Equal(t, "123-456-32-18", Format("1234563218"))
	assert.Equal(t, "12345", Format("12345"))
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if !Validate("123-456-32-18") || Format("1234563218") != "123-456-32-18" {
					t.Error("unexpected result under concurrency")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkValidate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Validate("123-456-32-18")
	}
}
