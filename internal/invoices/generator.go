// Package invoices renders printable order invoices for paid orders.
package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotoconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/boticalabs/botica-backend/pkg/db/models"
	"github.com/boticalabs/botica-backend/pkg/enums"
	pkgerrors "github.com/boticalabs/botica-backend/pkg/errors"
)

var (
	colorPrimary = &props.Color{Red: 13, Green: 92, Blue: 84}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

type orderLoader interface {
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type customerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// Service renders invoice PDFs. Only paid and later-stage orders carry an
// invoice; pending and canceled orders have nothing to bill.
type Service interface {
	GetInvoicePDF(ctx context.Context, orderID uuid.UUID, forCustomer *uuid.UUID) ([]byte, error)
}

type service struct {
	orders    orderLoader
	customers customerLoader
}

// NewService builds an invoice service with the required dependencies.
func NewService(orders orderLoader, customers customerLoader) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	return &service{orders: orders, customers: customers}, nil
}

func (s *service) GetInvoicePDF(ctx context.Context, orderID uuid.UUID, forCustomer *uuid.UUID) ([]byte, error) {
	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if forCustomer != nil && order.CustomerID != *forCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !invoiceable(order.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no invoice until it is paid")
	}

	customer, err := s.customers.FindByID(ctx, order.CustomerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	return render(order, customer)
}

func invoiceable(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusPaid, enums.OrderStatusPreparing, enums.OrderStatusDispatched, enums.OrderStatusDelivered:
		return true
	default:
		return false
	}
}

func render(order *models.Order, customer *models.Customer) ([]byte, error) {
	cfg := marotoconfig.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(fmt.Sprintf("Nota de venta %d", order.OrderNumber), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(order))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(customer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range itemRows(order.Items, order.Currency) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(order))
	m.AddRows(footerRow())

	doc, err := m.Generate()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render invoice pdf")
	}
	return doc.GetBytes(), nil
}

func headerRow(order *models.Order) core.Row {
	issued := order.CreatedAt.Format("02/01/2006")
	if order.PaidAt != nil {
		issued = order.PaidAt.Format("02/01/2006")
	}

	return row.New(18).Add(
		col.New(7).Add(
			text.New("Botica Labs", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("farmacia en línea", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("NOTA DE VENTA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("#%d", order.OrderNumber), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+issued, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func customerRow(customer *models.Customer) core.Row {
	name := "—"
	if customer.User != nil {
		name = customer.User.FirstName + " " + customer.User.LastName
	}
	if customer.Type == enums.CustomerTypeWholesale && customer.BusinessName != nil {
		name = *customer.BusinessName
	}
	identity := "Cliente: " + string(customer.Type)
	if customer.TaxID != nil {
		identity += "   |   RFC: " + *customer.TaxID
	}

	return row.New(14).Add(
		col.New(12).Add(
			text.New("CLIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(identity, props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Producto", 6, align.Left),
		h("P. Unitario", 2, align.Right),
		h("Importe", 3, align.Right),
	)
}

func itemRows(items []models.OrderItem, currency enums.Currency) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, item := range items {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				fmt.Sprintf("%d", item.Qty),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(6).Add(text.New(
				item.Name+"  ("+item.SKU+")",
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				formatCents(item.UnitPriceCents, currency),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(3).Add(text.New(
				formatCents(item.TotalCents, currency),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

func totalsRow(order *models.Order) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := text.New("TOTAL:", props.Text{
		Style: fontstyle.Bold, Size: 10, Align: align.Right,
		Color: colorPrimary, Right: 2,
	})
	grandValue := text.New(formatCents(order.TotalCents, order.Currency), props.Text{
		Style: fontstyle.Bold, Size: 10, Align: align.Right,
		Color: colorPrimary, Right: 1,
	})

	return row.New(26).Add(
		col.New(3),
		col.New(3).Add(
			label("Subtotal:"),
			label("Descuento:"),
			grandLabel,
		),
		col.New(3).Add(
			value(formatCents(order.SubtotalCents, order.Currency)),
			value(formatCents(order.DiscountCents, order.Currency)),
			grandValue,
		),
		col.New(3),
	)
}

func footerRow() core.Row {
	return row.New(10).Add(col.New(12).Add(
		text.New(
			"Documento informativo de compra. Conserve esta nota como comprobante de su pedido.",
			props.Text{Size: 6.5, Color: colorGray, Top: 4},
		),
	))
}

// formatCents renders an integer cent amount as "$1,234.50 MXN".
func formatCents(cents int, currency enums.Currency) string {
	amount := decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100))
	whole := amount.Truncate(0).StringFixed(0)
	frac := amount.Sub(amount.Truncate(0)).Abs().StringFixed(2)

	n := len(whole)
	start := 0
	if whole[0] == '-' {
		start = 1
	}
	buf := make([]byte, 0, n+n/3)
	for i := start; i < n; i++ {
		if i > start && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, whole[i])
	}
	formatted := string(whole[:start]) + string(buf)
	return "$" + formatted + frac[1:] + " " + currency.String()
}
