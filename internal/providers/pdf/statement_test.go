package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "612.00 SAR", FormatMinor(61200, "SAR"))
	assert.Equal(t, "0.05 SAR", FormatMinor(5, "SAR"))
	assert.Equal(t, "-1.50 SAR", FormatMinor(-150, "SAR"))
}

func TestNewStatementRequiresSettlement(t *testing.T) {
	_, err := NewStatement(claimdomain.Claim{ClaimCode: "SAN-2025-00001"}, nil, time.Now())
	assert.ErrorIs(t, err, ErrNotSettled)
}

func TestSettlementStatement(t *testing.T) {
	claim := claimdomain.Claim{
		ClaimCode:       "SAN-2025-00001",
		CustomerName:    "Faisal",
		CompanyName:     "Example Air",
		ReferenceNumber: "XA123",
		IncidentDate:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	settlement := &claimdomain.Settlement{
		CompensationType:   claimdomain.CompensationCash,
		CompensationAmount: 76500,
		FeePercentage:      20,
		NetAmount:          61200,
		Currency:           "SAR",
		ClosedAt:           time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
	}
	data, err := NewStatement(claim, settlement, time.Date(2025, 3, 21, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "765.00 SAR", data.Amount)
	assert.Equal(t, "153.00 SAR", data.Fee)
	assert.Equal(t, "612.00 SAR", data.NetAmount)
	assert.Equal(t, "20%", data.FeePercentage)
	assert.Equal(t, "CASH", data.CompensationType)

	doc, err := New().SettlementStatement(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}
