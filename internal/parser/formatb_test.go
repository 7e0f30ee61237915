package parser

import (
	"testing"

	"signalSimBot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const formatBSample = "🔥 #BTC/USDT LONG\nEntry zone: 44000 - 45000\nTargets: 46000, 47000, 48500\nStop loss: 43000\nLev: 10x\nNote: clean breakout retest"

func TestFormatB_CanParse(t *testing.T) {
	p := NewFormatB()
	assert.True(t, p.CanParse(formatBSample))
	assert.False(t, p.CanParse("BTCUSDT LONG Entry: 45000 TP1: 47000"), "labelled format lacks the zone wording")
	assert.False(t, p.CanParse("Entry zone: 44000 - 45000"), "zone without targets")
	assert.False(t, p.CanParse("$BTC giveaway! targets: the moon"), "no entry zone")
}

func TestFormatB_Parse(t *testing.T) {
	p := NewFormatB()

	t.Run("full channel post", func(t *testing.T) {
		sig := p.Parse(formatBSample, "channel-7")
		require.NotNil(t, sig)
		assert.Equal(t, "BTCUSDT", sig.Symbol)
		assert.Equal(t, domain.Long, sig.Side)
		assert.InDelta(t, 44000, sig.EntryLow, 1e-9)
		assert.InDelta(t, 45000, sig.EntryHigh, 1e-9)
		assert.Equal(t, []float64{46000, 47000, 48500}, sig.Targets)
		assert.InDelta(t, 43000, sig.Stop, 1e-9)
		assert.Equal(t, 10, sig.Leverage)
		assert.Equal(t, "clean breakout retest", sig.Reason)
		assert.Equal(t, "trade-format-b", sig.ParserUsed)
	})

	t.Run("inverted zone bounds are reordered", func(t *testing.T) {
		sig := p.Parse("#ETH SHORT\nEntry zone: 3300 - 3200\nTargets: 3000\nSL: 3400", "t")
		require.NotNil(t, sig)
		assert.InDelta(t, 3200, sig.EntryLow, 1e-9)
		assert.InDelta(t, 3300, sig.EntryHigh, 1e-9)
	})

	t.Run("sl shorthand and comma prices", func(t *testing.T) {
		sig := p.Parse("#BTC LONG\nEntry zone: 44,000 - 45,000\nTargets: 46,000, 47,500\nSL: 43,000", "t")
		require.NotNil(t, sig)
		assert.InDelta(t, 44000, sig.EntryLow, 1e-9)
		assert.Equal(t, []float64{46000, 47500}, sig.Targets)
		assert.InDelta(t, 43000, sig.Stop, 1e-9)
	})

	t.Run("slash targets", func(t *testing.T) {
		sig := p.Parse("#SOL LONG\nEntry zone: 140 - 145\nTargets: 150 / 160 / 170\nStop loss: 135", "t")
		require.NotNil(t, sig)
		assert.Equal(t, []float64{150, 160, 170}, sig.Targets)
	})

	t.Run("zone bonus raises confidence over single entry", func(t *testing.T) {
		zone := p.Parse("#BTC LONG\nEntry zone: 44000 - 45000\nTargets: 46000\nSL: 43000", "t")
		single := p.Parse("#BTC LONG\nEntry zone tbd\nEntry: 44500\nTargets: 46000\nSL: 43000", "t")
		require.NotNil(t, zone)
		require.NotNil(t, single)
		assert.Greater(t, zone.Confidence, single.Confidence)
	})

	t.Run("missing side drops the draft", func(t *testing.T) {
		assert.Nil(t, p.Parse("#BTC\nEntry zone: 44000 - 45000\nTargets: 46000", "t"))
	})
}
