package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		dong int64
	}{
		{"positive", 44545},
		{"zero", 0},
		{"negative", -5000},
		{"large", 123456789000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.dong)
			assert.Equal(t, tt.dong, a.Dong())
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"thousands", "44.545", 44545, false},
		{"millions", "1.234.567", 1234567, false},
		{"decimal comma rounds", "1.234,6", 1235, false},
		{"currency symbol", "49.000 ₫", 49000, false},
		{"vnd suffix", "49.000 VND", 49000, false},
		{"plain", "49000", 49000, false},
		{"garbage", "abc", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Dong())
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := New(44545)
	b := New(4455)

	assert.Equal(t, int64(49000), a.Add(b).Dong())
	assert.Equal(t, int64(40090), a.Sub(b).Dong())
	assert.True(t, New(49000).Equals(a.Add(b)))
	assert.Equal(t, int64(49000), Sum(a, b).Dong())
	assert.Equal(t, int64(0), Sum().Dong())
}

func TestVAT(t *testing.T) {
	base := New(44545)

	t.Run("ten percent", func(t *testing.T) {
		assert.Equal(t, int64(4455), base.VAT(10).Dong())
		assert.Equal(t, int64(49000), base.WithVAT(10).Dong())
	})

	t.Run("zero rate", func(t *testing.T) {
		assert.True(t, base.VAT(0).IsZero())
		assert.Equal(t, base.Dong(), base.WithVAT(0).Dong())
	})

	t.Run("base from gross", func(t *testing.T) {
		gross := New(49000)
		assert.Equal(t, int64(44545), gross.BaseFromGross(10).Dong())
	})
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		name string
		dong int64
		want string
	}{
		{"grouped", 1234567, "1.234.567 ₫"},
		{"small", 500, "500 ₫"},
		{"exact thousands", 49000, "49.000 ₫"},
		{"negative", -49000, "-49.000 ₫"},
		{"zero", 0, "0 ₫"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.dong).Display())
		})
	}
}

func TestFromDecimal(t *testing.T) {
	d := decimal.RequireFromString("44545.4")
	assert.Equal(t, int64(44545), FromDecimal(d).Dong())

	d = decimal.RequireFromString("44545.5")
	assert.Equal(t, int64(44546), FromDecimal(d).Dong())
}

func TestNilSafety(t *testing.T) {
	var a *Amount

	assert.Equal(t, int64(0), a.Dong())
	assert.True(t, a.IsZero())
	assert.False(t, a.IsNegative())
	assert.Equal(t, "0", a.String())
	assert.Equal(t, "0 ₫", a.Display())
	assert.Equal(t, int64(100), a.Add(New(100)).Dong())
	assert.Equal(t, int64(-100), a.Sub(New(100)).Dong())
	assert.True(t, a.VAT(10).IsZero())
}

func BenchmarkParse(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Parse("1.234.567")
	}
}

func BenchmarkVAT(b *testing.B) {
	a := New(44545)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.VAT(10)
	}
}
