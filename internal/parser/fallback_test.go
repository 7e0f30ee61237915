package parser

import (
	"testing"

	"signalSimBot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallback_CanParse(t *testing.T) {
	p := NewFallback()
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "hashtag and direction", text: "#BTC is a buy here", want: true},
		{name: "suffixed symbol and direction", text: "shorting ethusdt into resistance", want: true},
		{name: "pair and direction", text: "SOL/USDT long idea", want: true},
		{name: "direction without symbol", text: "i would long this chart", want: false},
		{name: "symbol without direction", text: "#BTC printing a doji", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CanParse(tt.text))
		})
	}
}

func TestFallback_Parse(t *testing.T) {
	p := NewFallback()

	t.Run("scavenges labelled prices from prose", func(t *testing.T) {
		text := "Thinking about longing #BTC, buy in 44500, take profit 47000, stop 43000, 10x max"
		sig := p.Parse(text, "t")
		require.NotNil(t, sig)
		assert.Equal(t, "BTCUSDT", sig.Symbol)
		assert.Equal(t, domain.Long, sig.Side)
		assert.InDelta(t, 44500, sig.EntryLow, 1e-9)
		assert.Equal(t, []float64{47000}, sig.Targets)
		assert.InDelta(t, 43000, sig.Stop, 1e-9)
		assert.Equal(t, 10, sig.Leverage)
		assert.Equal(t, domain.MethodFallback, sig.Method)
		assert.Equal(t, "generic-fallback", sig.ParserUsed)
	})

	t.Run("entry range", func(t *testing.T) {
		sig := p.Parse("ethusdt short, open 3200 - 3300, target 3000", "t")
		require.NotNil(t, sig)
		assert.InDelta(t, 3200, sig.EntryLow, 1e-9)
		assert.InDelta(t, 3300, sig.EntryHigh, 1e-9)
	})

	t.Run("fields it cannot find stay absent", func(t *testing.T) {
		sig := p.Parse("#DOGE long, no levels yet", "t")
		require.NotNil(t, sig)
		assert.Equal(t, "DOGEUSDT", sig.Symbol)
		assert.False(t, sig.HasEntry())
		assert.Empty(t, sig.Targets)
		assert.Zero(t, sig.Stop)
	})
}
