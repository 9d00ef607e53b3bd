package emails

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/types"
)

// content is a rendered email body pair.
type content struct {
	Subject string
	HTML    string
	Text    string
}

type lineView struct {
	Name      string
	Quantity  int
	LineTotal string
}

type orderView struct {
	StoreName      string
	CustomerName   string
	OrderNumber    string
	Lines          []lineView
	Subtotal       string
	Discount       string
	Shipping       string
	Tax            string
	Total          string
	Currency       string
	TrackingNumber string
	TrackingURL    string
	ShippingMethod string
}

var (
	orderConfirmationHTML = template.Must(template.New("order_confirmation").Parse(`<h1>Thanks for your order, {{.CustomerName}}!</h1>
<p>Order <strong>{{.OrderNumber}}</strong> is confirmed.</p>
<table>{{range .Lines}}<tr><td>{{.Name}} &times; {{.Quantity}}</td><td>{{.LineTotal}}</td></tr>{{end}}</table>
<p>Subtotal: {{.Subtotal}}</p>{{if .Discount}}<p>Discount: -{{.Discount}}</p>{{end}}
<p>Shipping: {{.Shipping}}</p><p>Tax: {{.Tax}}</p>
<p><strong>Total: {{.Total}} {{.Currency}}</strong></p>
<p>{{.StoreName}}</p>`))

	shippingNotificationHTML = template.Must(template.New("shipping_notification").Parse(`<h1>Your order is on its way</h1>
<p>Hi {{.CustomerName}}, order <strong>{{.OrderNumber}}</strong> has shipped{{if .ShippingMethod}} via {{.ShippingMethod}}{{end}}.</p>
{{if .TrackingNumber}}<p>Tracking number: {{.TrackingNumber}}</p>{{end}}
{{if .TrackingURL}}<p><a href="{{.TrackingURL}}">Track your package</a></p>{{end}}
<p>{{.StoreName}}</p>`))

	adminWelcomeHTML = template.Must(template.New("admin_welcome").Parse(`<h1>Welcome to the {{.StoreName}} admin</h1>
<p>You have been granted the <strong>{{.Role}}</strong> role.</p>
<p><a href="{{.LoginURL}}">Sign in</a></p>`))

	abandonedCartHTML = template.Must(template.New("abandoned_cart").Parse(`<h1>You left something behind</h1>
<table>{{range .Lines}}<tr><td>{{.Name}} &times; {{.Quantity}}</td><td>{{.LineTotal}}</td></tr>{{end}}</table>
<p>Subtotal: {{.Subtotal}}</p>
<p><a href="{{.RecoveryURL}}">Return to your cart</a></p>
<p>{{.StoreName}}</p>`))

	promotionHTML = template.Must(template.New("admin_promotion").Parse(`<h1>{{.Headline}}</h1>
<div>{{.Body}}</div>
{{if .CTAURL}}<p><a href="{{.CTAURL}}">{{.CTALabel}}</a></p>{{end}}
<p>{{.StoreName}}</p>`))
)

func render(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func lines(items types.CartItems) []lineView {
	out := make([]lineView, 0, len(items))
	for _, item := range items {
		out = append(out, lineView{Name: item.Name, Quantity: item.Quantity, LineTotal: money(item.LineTotal())})
	}
	return out
}

func textLines(items types.CartItems) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s x%d  %s\n", item.Name, item.Quantity, money(item.LineTotal()))
	}
	return b.String()
}

func newOrderView(storeName string, order models.Order) orderView {
	view := orderView{
		StoreName:    storeName,
		CustomerName: order.CustomerName,
		OrderNumber:  order.OrderNumber,
		Lines:        lines(order.Items),
		Subtotal:     money(order.Subtotal),
		Shipping:     money(order.ShippingCost),
		Tax:          money(order.TaxTotal),
		Total:        money(order.Total),
		Currency:     order.Currency,
	}
	if order.DiscountTotal.IsPositive() {
		view.Discount = money(order.DiscountTotal)
	}
	if order.TrackingNumber != nil {
		view.TrackingNumber = *order.TrackingNumber
	}
	if order.TrackingURL != nil {
		view.TrackingURL = *order.TrackingURL
	}
	if order.ShippingMethod != nil {
		view.ShippingMethod = *order.ShippingMethod
	}
	if view.CustomerName == "" {
		view.CustomerName = "there"
	}
	return view
}

func orderConfirmationContent(storeName string, order models.Order) (content, error) {
	view := newOrderView(storeName, order)
	html, err := render(orderConfirmationHTML, view)
	if err != nil {
		return content{}, err
	}
	text := fmt.Sprintf("Thanks for your order, %s!\nOrder %s is confirmed.\n\n%s\nTotal: %s %s\n",
		view.CustomerName, view.OrderNumber, textLines(order.Items), view.Total, view.Currency)
	return content{
		Subject: fmt.Sprintf("%s order %s confirmed", storeName, order.OrderNumber),
		HTML:    html,
		Text:    text,
	}, nil
}

func shippingNotificationContent(storeName string, order models.Order) (content, error) {
	view := newOrderView(storeName, order)
	html, err := render(shippingNotificationHTML, view)
	if err != nil {
		return content{}, err
	}
	text := fmt.Sprintf("Hi %s, order %s has shipped.\n", view.CustomerName, view.OrderNumber)
	if view.TrackingNumber != "" {
		text += "Tracking number: " + view.TrackingNumber + "\n"
	}
	if view.TrackingURL != "" {
		text += "Track: " + view.TrackingURL + "\n"
	}
	return content{
		Subject: fmt.Sprintf("Your %s order %s has shipped", storeName, order.OrderNumber),
		HTML:    html,
		Text:    text,
	}, nil
}

func adminWelcomeContent(storeName, role, loginURL string) (content, error) {
	html, err := render(adminWelcomeHTML, map[string]string{"StoreName": storeName, "Role": role, "LoginURL": loginURL})
	if err != nil {
		return content{}, err
	}
	return content{
		Subject: fmt.Sprintf("You now have %s access to %s", role, storeName),
		HTML:    html,
		Text:    fmt.Sprintf("You have been granted the %s role. Sign in at %s\n", role, loginURL),
	}, nil
}

func abandonedCartContent(storeName, recoveryURL string, record models.AbandonedCart) (content, error) {
	data := map[string]any{
		"StoreName":   storeName,
		"Lines":       lines(record.Items),
		"Subtotal":    money(record.Subtotal),
		"RecoveryURL": recoveryURL,
	}
	html, err := render(abandonedCartHTML, data)
	if err != nil {
		return content{}, err
	}
	return content{
		Subject: fmt.Sprintf("Your %s cart is waiting", storeName),
		HTML:    html,
		Text:    fmt.Sprintf("You left something behind:\n%s\nReturn to your cart: %s\n", textLines(record.Items), recoveryURL),
	}, nil
}

func promotionContent(storeName string, in PromotionInput) (content, error) {
	label := in.CTALabel
	if label == "" {
		label = "Shop now"
	}
	data := map[string]string{
		"StoreName": storeName,
		"Headline":  in.Headline,
		"Body":      in.Body,
		"CTAURL":    in.CTAURL,
		"CTALabel":  label,
	}
	html, err := render(promotionHTML, data)
	if err != nil {
		return content{}, err
	}
	text := in.Headline + "\n\n" + in.Body + "\n"
	if in.CTAURL != "" {
		text += label + ": " + in.CTAURL + "\n"
	}
	return content{Subject: in.Subject, HTML: html, Text: text}, nil
}
