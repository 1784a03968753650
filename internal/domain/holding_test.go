package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHolding_Validate(t *testing.T) {
	tickerID := uuid.New()

	tests := []struct {
		name    string
		holding Holding
		wantErr bool
	}{
		{
			name: "Valid cash asset",
			holding: Holding{
				ID: uuid.New(), UserID: uuid.New(),
				Name: "Checking", Kind: HoldingKindAsset, Currency: "EUR", Poolable: true,
			},
		},
		{
			name: "Valid stock asset with ticker",
			holding: Holding{
				ID: uuid.New(), UserID: uuid.New(),
				Name: "AAPL shares", Kind: HoldingKindAsset, Currency: "USD", TickerID: &tickerID,
			},
		},
		{
			name: "Valid debt",
			holding: Holding{
				ID: uuid.New(), UserID: uuid.New(),
				Name: "Mortgage", Kind: HoldingKindDebt, Currency: "EUR",
			},
		},
		{
			name: "Debt with ticker should fail",
			holding: Holding{
				ID: uuid.New(), UserID: uuid.New(),
				Name: "Bad debt", Kind: HoldingKindDebt, Currency: "EUR", TickerID: &tickerID,
			},
			wantErr: true,
		},
		{
			name: "Poolable debt should fail",
			holding: Holding{
				ID: uuid.New(), UserID: uuid.New(),
				Name: "Bad debt", Kind: HoldingKindDebt, Currency: "EUR", Poolable: true,
			},
			wantErr: true,
		},
		{
			name: "Unknown currency should fail",
			holding: Holding{
				ID: uuid.New(), UserID: uuid.New(),
				Name: "Checking", Kind: HoldingKindAsset, Currency: "EURO",
			},
			wantErr: true,
		},
		{
			name: "Empty name should fail",
			holding: Holding{
				ID: uuid.New(), UserID: uuid.New(),
				Kind: HoldingKindAsset, Currency: "EUR",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.holding.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHolding_IsStock(t *testing.T) {
	tickerID := uuid.New()

	stock := Holding{TickerID: &tickerID}
	cash := Holding{}

	assert.True(t, stock.IsStock())
	assert.False(t, cash.IsStock())
}
