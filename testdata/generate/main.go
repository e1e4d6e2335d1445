// Command generate produces testdata/fixtures.json: a self-consistent fund
// snapshot where every member balance equals the signed sum of their ledger
// entries, so a fresh seed passes the conservation audit with zero findings.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopfund/ledger/internal/domain"
)

const (
	memberCount = 12
	shareValue  = "42.00"
)

type fixtures struct {
	Members      []domain.Member      `json:"members"`
	Quotas       []domain.Quota       `json:"quotas"`
	Loans        []domain.Loan        `json:"loans"`
	Installments []domain.Installment `json:"installments"`
	Entries      []domain.LedgerEntry `json:"entries"`
	ProfitPool   string               `json:"profit_pool"`
}

func main() {
	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC()
	share := decimal.RequireFromString(shareValue)

	var fx fixtures
	fx.ProfitPool = "1000.00"

	names := []string{
		"Ana Souza", "Bruno Lima", "Carla Mendes", "Daniel Rocha",
		"Elisa Prado", "Felipe Costa", "Gabriela Nunes", "Hugo Martins",
		"Isabela Reis", "Joao Ferreira", "Karen Alves", "Lucas Pinto",
	}

	for i := 0; i < memberCount; i++ {
		tier := domain.TierStandard
		if rng.Intn(4) == 0 {
			tier = domain.TierPremium
		}
		m := domain.Member{
			ID:               fmt.Sprintf("member-%02d", i+1),
			Name:             names[i%len(names)],
			Tier:             tier,
			TwoFactorEnabled: rng.Intn(2) == 0,
			Balance:          decimal.Zero,
			CreatedAt:        now.AddDate(0, -rng.Intn(18), 0),
		}

		// Opening deposit keeps balance and ledger in agreement.
		deposit := decimal.NewFromInt(int64(100 + rng.Intn(900)))
		fx.Entries = append(fx.Entries, domain.LedgerEntry{
			ID:        uuid.New().String(),
			OwnerID:   m.ID,
			Type:      domain.EntryDeposit,
			Amount:    deposit,
			Status:    domain.EntryCompleted,
			Metadata:  domain.EntryMetadata{Kind: domain.MetaGeneric},
			CreatedAt: m.CreatedAt,
		})
		m.Balance = deposit

		// Quota book, oldest first.
		quotaCount := rng.Intn(8)
		for q := 0; q < quotaCount; q++ {
			fx.Quotas = append(fx.Quotas, domain.Quota{
				ID:           uuid.New().String(),
				OwnerID:      m.ID,
				ShareValue:   share,
				Status:       domain.QuotaActive,
				PurchaseDate: m.CreatedAt.AddDate(0, 0, q*30+rng.Intn(10)),
			})
		}

		// Some members carry a loan with an overdue installment, the
		// liquidation engine's raw material.
		if rng.Intn(3) == 0 {
			loan := domain.Loan{
				ID:           uuid.New().String(),
				OwnerID:      m.ID,
				Principal:    decimal.NewFromInt(int64(200 + rng.Intn(400))),
				InterestPaid: decimal.Zero,
				Status:       domain.LoanActive,
				CreatedAt:    now.AddDate(0, -3, 0),
			}
			fx.Loans = append(fx.Loans, loan)
			fx.Installments = append(fx.Installments, domain.Installment{
				ID:             uuid.New().String(),
				LoanID:         loan.ID,
				OwnerID:        m.ID,
				ExpectedAmount: decimal.NewFromInt(int64(50 + rng.Intn(150))),
				DueDate:        now.AddDate(0, 0, -(36 + rng.Intn(30))),
				Status:         domain.InstallmentPending,
			})
		}

		// A marketplace purchase makes the member revenue-bearing and
		// therefore distribution-eligible.
		if rng.Intn(2) == 0 {
			amount := decimal.NewFromInt(int64(20 + rng.Intn(80)))
			fx.Entries = append(fx.Entries, domain.LedgerEntry{
				ID:        uuid.New().String(),
				OwnerID:   m.ID,
				Type:      domain.EntryPurchase,
				Amount:    amount,
				Status:    domain.EntryCompleted,
				Metadata:  domain.EntryMetadata{Kind: domain.MetaGeneric},
				CreatedAt: now.AddDate(0, 0, -rng.Intn(60)),
			})
			m.Balance = m.Balance.Sub(amount)
		}

		fx.Members = append(fx.Members, m)
	}

	data, err := json.MarshalIndent(fx, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal fixtures: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("testdata/fixtures.json", data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write fixtures: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote testdata/fixtures.json: %d members, %d quotas, %d loans, %d installments, %d entries\n",
		len(fx.Members), len(fx.Quotas), len(fx.Loans), len(fx.Installments), len(fx.Entries))
}
