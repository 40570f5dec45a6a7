package bus

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel/models"
)

func TestEncodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		data    any
		wantErr bool
	}{
		{
			name: "flat event payload",
			data: models.BidValidated{
				AuctionID: "a1",
				BidderID:  "bob",
				Amount:    decimal.NewFromInt(150),
			},
		},
		{
			name: "payload with time and decimal",
			data: models.AuctionStarted{
				AuctionID:     "a1",
				Description:   "vintage radio",
				StartingPrice: decimal.NewFromInt(100),
				StartTime:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				EndTime:       time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "non-object payload",
			data:    "just a string",
			wantErr: true,
		},
		{
			name: "nested payload",
			data: map[string]any{
				"auction_id": "a1",
				"nested":     map[string]any{"x": 1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := EncodeMessage(tt.data)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, values)
			for key, value := range values {
				switch value.(type) {
				case string, float64, bool, nil:
				default:
					t.Errorf("field %q is not a scalar: %T", key, value)
				}
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := models.AuctionWon{
		AuctionID: "a1",
		WinnerID:  "bob",
		Amount:    decimal.RequireFromString("150.50"),
	}

	values, err := EncodeMessage(original)
	require.NoError(t, err)

	// Stream values come back as strings; the decoder must cope.
	asStrings := make(map[string]any, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok {
			asStrings[k] = s
		} else {
			asStrings[k] = v
		}
	}

	var decoded models.AuctionWon
	require.NoError(t, DecodeMessage(asStrings, &decoded))
	assert.Equal(t, original.AuctionID, decoded.AuctionID)
	assert.Equal(t, original.WinnerID, decoded.WinnerID)
	assert.True(t, original.Amount.Equal(decoded.Amount))
}

func TestDecodeMessageMalformed(t *testing.T) {
	var out models.AuctionWon
	err := DecodeMessage(map[string]any{"amount": "not-a-number"}, &out)
	assert.Error(t, err)
}
