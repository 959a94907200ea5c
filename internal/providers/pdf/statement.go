package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
)

type StatementData struct {
	ClaimCode       string
	CustomerName    string
	CompanyName     string
	ReferenceNumber string
	IncidentDate    string
	IssuedAt        string

	CompensationType string
	Currency         string
	Amount           string
	FeePercentage    string
	Fee              string
	NetAmount        string
	ClosedAt         string
}

// NewStatement formats a settled claim for printing. Amounts are in the
// smallest currency unit.
func NewStatement(claim claimdomain.Claim, settlement *claimdomain.Settlement, issuedAt time.Time) (StatementData, error) {
	if settlement == nil {
		return StatementData{}, ErrNotSettled
	}
	return StatementData{
		ClaimCode:        claim.ClaimCode,
		CustomerName:     claim.CustomerName,
		CompanyName:      claim.CompanyName,
		ReferenceNumber:  claim.ReferenceNumber,
		IncidentDate:     claim.IncidentDate.UTC().Format("2006-01-02"),
		IssuedAt:         issuedAt.UTC().Format("2006-01-02 15:04 MST"),
		CompensationType: strings.ToUpper(string(settlement.CompensationType)),
		Currency:         settlement.Currency,
		Amount:           FormatMinor(settlement.CompensationAmount, settlement.Currency),
		FeePercentage:    strconv.FormatFloat(settlement.FeePercentage, 'f', -1, 64) + "%",
		Fee:              FormatMinor(settlement.CompensationAmount-settlement.NetAmount, settlement.Currency),
		NetAmount:        FormatMinor(settlement.NetAmount, settlement.Currency),
		ClosedAt:         settlement.ClosedAt.UTC().Format("2006-01-02"),
	}, nil
}

// FormatMinor renders an amount in minor units with two decimals.
func FormatMinor(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) SettlementStatement(ctx context.Context, s StatementData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(15,
		text.NewCol(8, "Settlement statement", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, s.ClaimCode, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
			Top:   3,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Claimant", props.Text{Style: fontstyle.Bold}),
			text.New(s.CustomerName, props.Text{Top: 5}),
		),
		col.New(6).Add(
			text.New("Against", props.Text{Style: fontstyle.Bold}),
			text.New(s.CompanyName, props.Text{Top: 5}),
			text.New("Reference: "+s.ReferenceNumber, props.Text{Top: 10}),
			text.New("Incident date: "+s.IncidentDate, props.Text{Top: 15}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(6, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	rows := [][2]string{
		{"Compensation (" + s.CompensationType + ")", s.Amount},
		{"Service fee (" + s.FeePercentage + ")", "-" + s.Fee},
	}
	for _, r := range rows {
		m.AddRow(8,
			text.NewCol(6, r[0], props.Text{Size: 9}),
			text.NewCol(6, r[1], props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Net paid", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(3, s.NetAmount, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	m.AddRow(16,
		col.New(12).Add(
			text.New("Closed on "+s.ClosedAt, props.Text{Size: 8, Top: 6}),
			text.New("Issued "+s.IssuedAt, props.Text{Size: 8, Top: 10}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render settlement statement: %w", err)
	}
	return doc.GetBytes(), nil
}
