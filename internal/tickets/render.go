// Package tickets renders POS tickets as fixed-width text for 80 mm thermal
// printers and delivers them to a print sink, either directly or through
// RabbitMQ.
package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

// DefaultWidth fits an 80 mm roll at the printer's standard font.
const DefaultWidth = 42

type Renderer struct {
	Width    int
	Header   []string
	Location *time.Location
}

func NewRenderer(width int, header []string, loc *time.Location) *Renderer {
	if width < 24 {
		width = DefaultWidth
	}
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{Width: width, Header: header, Location: loc}
}

func (r *Renderer) Render(t domain.Ticket) string {
	b := &builder{width: r.Width}
	switch t.Kind {
	case domain.TicketKitchen:
		r.kitchen(b, t)
	case domain.TicketCustomer, domain.TicketPreCheck:
		r.customer(b, t)
	case domain.TicketCancellation:
		r.cancellation(b, t)
	case domain.TicketCashCut:
		r.cashCut(b, t)
	default:
		b.center(strings.ToUpper(string(t.Kind)))
	}
	return b.String()
}

func (r *Renderer) when(t domain.Ticket) string {
	at := t.IssuedAt
	if at.IsZero() {
		at = time.Now()
	}
	return at.In(r.Location).Format("02/01/2006 15:04")
}

func (r *Renderer) header(b *builder) {
	for _, h := range r.Header {
		b.center(h)
	}
	if len(r.Header) > 0 {
		b.blank()
	}
}

func (r *Renderer) kitchen(b *builder, t domain.Ticket) {
	if len(r.Header) > 0 {
		b.center(r.Header[0])
	}
	b.center("FOLIO: #" + folio(t.OrderNumber, "S/N"))
	b.center("TICKET DE COCINA")
	b.line("Mesa: " + t.OriginName)
	b.line("Fecha: " + r.when(t))
	b.rule('=')
	b.line("CANT  PRODUCTO")
	b.rule('-')
	for _, l := range t.Lines {
		b.hanging(fmt.Sprintf("%-4d  ", l.Quantity), l.Name)
		if strings.TrimSpace(l.Notes) != "" {
			b.hanging("      ", "Nota: "+l.Notes)
		}
	}
	b.rule('=')
}

func (r *Renderer) customer(b *builder, t domain.Ticket) {
	pre := t.Kind == domain.TicketPreCheck
	r.header(b)
	if pre {
		b.center("CUENTA")
	} else {
		b.center("TICKET DE VENTA")
	}
	if !pre || t.OrderNumber != nil {
		b.center("FOLIO: #" + folio(t.OrderNumber, "PENDIENTE"))
	}
	operator := t.Operator
	if operator == "" {
		operator = "General"
	}
	b.split("Mesa: "+t.OriginName, "Atendió: "+operator)
	b.line("Fecha: " + r.when(t))
	if t.Customer != nil && t.Customer.Name != "" {
		b.line("Cliente: " + t.Customer.Name)
		if t.Customer.Phone != "" {
			b.line("Tel: " + t.Customer.Phone)
		}
	}
	if t.Address != "" {
		b.hanging("Entrega: ", t.Address)
	}
	b.rule('-')
	b.split("CANT  DESCRIPCION", "IMPORTE")
	b.rule('-')
	for _, l := range t.Lines {
		b.item(l.Quantity, l.Name, money(l.Amount()))
	}
	b.rule('-')

	if t.Discount.IsPositive() {
		b.split("Subtotal:", money(t.Subtotal))
		b.split("Descuento:", "-"+money(t.Discount))
	}
	b.split("TOTAL:", money(t.Total))
	if !pre && t.Tip.IsPositive() {
		b.split("Propina (Opcional):", money(t.Tip))
		b.split("GRAN TOTAL:", money(t.Total.Add(t.Tip)))
	}
	if !pre {
		b.blank()
		b.line("Pago: " + t.PaymentMethod.Label())
	}
	b.blank()
	b.center("¡Gracias por su preferencia!")
	b.center("Este no es un comprobante fiscal")
}

func (r *Renderer) cancellation(b *builder, t domain.Ticket) {
	if len(r.Header) > 0 {
		b.center(r.Header[0])
	}
	b.center("CANCELACIÓN")
	if t.OrderNumber != nil {
		b.center("ORDEN #" + folio(t.OrderNumber, ""))
	}
	operator := t.Operator
	if operator == "" {
		operator = "Admin"
	}
	b.line("Mesa: " + t.OriginName)
	b.line("Autorizó: " + operator)
	b.line("Fecha: " + r.when(t))
	if len(t.Lines) > 0 {
		b.rule('-')
		for _, l := range t.Lines {
			b.hanging(fmt.Sprintf("%-4d  ", l.Quantity), l.Name)
		}
	}
	b.rule('=')
	b.center("ORDEN ANULADA")
	b.center("No preparar / Desechar")
}

func (r *Renderer) cashCut(b *builder, t domain.Ticket) {
	b.center("CORTE DE CAJA")
	c := t.CashCut
	if c == nil {
		return
	}
	operator := c.Operator
	if operator == "" {
		operator = "Sistema"
	}
	b.line("Fecha: " + r.when(t))
	b.line("Realizado por: " + operator)
	b.rule('-')
	b.line("RESUMEN FINANCIERO")
	b.split("Ventas Efectivo:", money(c.CashSales))
	b.split("Ventas Digitales:", money(c.DigitalSales))
	b.split("Venta Total:", money(c.TotalSales))
	b.split("Propinas:", money(c.Tips))
	b.split("(-) Gastos:", money(c.Expenses))
	if c.CancelledCount > 0 {
		b.split(fmt.Sprintf("Canceladas (%d):", c.CancelledCount), money(c.CancelledTotal))
	}
	b.rule('-')
	b.line("ARQUEO DE CAJA")
	b.split("Esperado en Caja:", money(c.ExpectedCash))
	b.split("Efectivo Contado:", money(c.CountedCash))
	b.split("Diferencia:", money(c.Difference))
	b.split("Fondo en Caja:", money(c.LeftInDrawer))
	b.split("A Retirar:", money(c.ToWithdraw))
	b.rule('=')
	b.blank()
	b.center("_______________________")
	b.center("Firma")
}

func folio(n *int64, fallback string) string {
	if n == nil {
		return fallback
	}
	return fmt.Sprintf("%d", *n)
}

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// builder lays out text in display columns, so accented names keep the
// right-hand amounts aligned.
type builder struct {
	width int
	sb    strings.Builder
}

func (b *builder) String() string { return b.sb.String() }

func (b *builder) line(s string) {
	if runewidth.StringWidth(s) <= b.width {
		b.sb.WriteString(s)
		b.sb.WriteByte('\n')
		return
	}
	for _, part := range wrap(s, b.width) {
		b.sb.WriteString(part)
		b.sb.WriteByte('\n')
	}
}

func (b *builder) blank() { b.sb.WriteByte('\n') }

func (b *builder) rule(c rune) { b.line(strings.Repeat(string(c), b.width)) }

func (b *builder) center(s string) {
	for _, part := range wrap(s, b.width) {
		pad := (b.width - runewidth.StringWidth(part)) / 2
		b.line(strings.Repeat(" ", pad) + part)
	}
}

// split puts left and right on one line, right-aligned, truncating left.
func (b *builder) split(left, right string) {
	rw := runewidth.StringWidth(right)
	room := b.width - rw - 1
	if room < 1 {
		b.line(left)
		b.line(right)
		return
	}
	left = runewidth.Truncate(left, room, "…")
	b.line(runewidth.FillRight(left, b.width-rw) + right)
}

// hanging wraps text under a fixed prefix.
func (b *builder) hanging(prefix, text string) {
	indent := runewidth.StringWidth(prefix)
	parts := wrap(text, b.width-indent)
	for i, p := range parts {
		if i == 0 {
			b.line(prefix + p)
			continue
		}
		b.line(strings.Repeat(" ", indent) + p)
	}
}

// item renders "qty  name ... amount" with the name wrapped beside the
// quantity column.
func (b *builder) item(qty int, name, amount string) {
	const qtyCol = 6
	aw := runewidth.StringWidth(amount)
	nameWidth := b.width - qtyCol - aw - 1
	parts := wrap(name, nameWidth)
	for i, p := range parts {
		if i == 0 {
			b.line(runewidth.FillRight(fmt.Sprintf("%d", qty), qtyCol) + runewidth.FillRight(p, nameWidth+1) + amount)
			continue
		}
		b.line(strings.Repeat(" ", qtyCol) + p)
	}
}

// wrap breaks s on spaces into lines no wider than width display columns.
func wrap(s string, width int) []string {
	if width < 1 {
		return []string{s}
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var (
		out []string
		cur string
	)
	for _, w := range words {
		for runewidth.StringWidth(w) > width {
			head := runewidth.Truncate(w, width, "")
			if head == "" {
				break
			}
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			out = append(out, head)
			w = w[len(head):]
		}
		switch {
		case cur == "":
			cur = w
		case runewidth.StringWidth(cur)+1+runewidth.StringWidth(w) <= width:
			cur += " " + w
		default:
			out = append(out, cur)
			cur = w
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
