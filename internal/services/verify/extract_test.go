package verify

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain decimal", "570.00", "570", false},
		{"currency suffix", "570.00 ETB", "570", false},
		{"currency prefix", "ETB 1200.50", "1200.5", false},
		{"birr word", "350 Birr", "350", false},
		{"thousands separators", "12,345.67", "12345.67", false},
		{"br abbreviation", "Br. 99.90", "99.9", false},
		{"zero is invalid", "0.00", "", true},
		{"negative is invalid", "-20.00", "", true},
		{"empty", "", "", true},
		{"only currency token", "ETB", "", true},
		{"garbage", "amount pending", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	ts := ParseTimestamp("2025-03-01 18:30:00")
	assert.Equal(t, 2025, ts.Year())
	assert.Equal(t, time.March, ts.Month())
	assert.Equal(t, 18, ts.Hour())

	ts = ParseTimestamp("6/15/2025, 2:30:45 PM")
	assert.Equal(t, time.June, ts.Month())
	assert.Equal(t, 14, ts.Hour())

	ts = ParseTimestamp("01-Mar-2025 09:15:00")
	assert.Equal(t, time.March, ts.Month())

	assert.True(t, ParseTimestamp("sometime last week").IsZero())
	assert.True(t, ParseTimestamp("").IsZero())
}

func TestLabeledCell(t *testing.T) {
	page := `<html><body><table>
		<tr><td>Payer Name</td><td>Abebe Kebede</td></tr>
		<tr><td>Settled Amount</td><td>570.00 ETB</td></tr>
		<tr><th>Payment Date</th><td>2025-03-01 18:30:00</td></tr>
	</table></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, "Abebe Kebede", LabeledCell(doc, "payer name"))
	assert.Equal(t, "570.00 ETB", LabeledCell(doc, "settled amount", "amount"))
	assert.Equal(t, "2025-03-01 18:30:00", LabeledCell(doc, "payment date"))

	// label matching is case-insensitive and by substring
	assert.Equal(t, "Abebe Kebede", LabeledCell(doc, "PAYER"))

	// first label to match wins
	assert.Equal(t, "570.00 ETB", LabeledCell(doc, "no such label", "amount"))

	assert.Equal(t, "", LabeledCell(doc, "branch code"))
}

func TestLabeledCellInlineLayout(t *testing.T) {
	page := `<html><body>
		<div class="receipt">
			<span>Amount</span><span>120.00</span>
			<span>Sender</span><span>Tigist Alemu</span>
		</div>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, "120.00", LabeledCell(doc, "amount"))
	assert.Equal(t, "Tigist Alemu", LabeledCell(doc, "sender"))
}

func TestLabeledLine(t *testing.T) {
	text := strings.Join([]string{
		"Commercial Bank",
		"Payer  Abebe Kebede",
		"Receiver: Addis Events PLC",
		"Transferred Amount 570.00 ETB",
		"Payment Date & Time 01-Mar-2025 09:15:00",
	}, "\n")

	assert.Equal(t, "Abebe Kebede", LabeledLine(text, "payer"))
	assert.Equal(t, "Addis Events PLC", LabeledLine(text, "receiver"))
	assert.Equal(t, "570.00 ETB", LabeledLine(text, "transferred amount", "amount"))
	assert.Equal(t, "01-Mar-2025 09:15:00", LabeledLine(text, "payment date & time", "payment date"))
	assert.Equal(t, "", LabeledLine(text, "reference number"))
}
