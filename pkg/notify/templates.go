package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/example/bakery/pkg/models"
)

var orderTemplate = template.Must(template.New("order").Parse(`<p>Hi {{.Name}},</p>
<p>{{.Intro}}</p>
<table>
{{range .Order.Items}}<tr><td>{{.Name}} ({{.Weight}}) x {{.Quantity}}</td><td>{{printf "%.2f" .LineTotal}}</td></tr>
{{end}}{{range .Order.Addons}}<tr><td>{{.Name}} x {{.Quantity}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{printf "%.2f" .Order.Totals.Total}}</strong> ({{.Order.PaymentMethod}})</p>
<p>Delivery on {{.Order.DeliveryDate.Format "Mon, 02 Jan 2006"}}, {{.Order.DeliverySlot}}</p>
{{if .Link}}<p><a href="{{.Link}}">View your order</a></p>{{end}}
<p>{{.Store}}</p>`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<p>Thanks for subscribing to {{.Store}}!</p>
<p>You will hear from us about new cakes and offers.</p>
{{if .Link}}<p><a href="{{.Link}}">Visit the store</a></p>{{end}}`))

type storeInfo struct {
	Name        string
	FrontendURL string
}

func (s storeInfo) orderLink(o *models.Order) string {
	if s.FrontendURL == "" {
		return ""
	}
	return strings.TrimRight(s.FrontendURL, "/") + "/orders/" + o.ID.Hex()
}

func orderIntro(kind string, o *models.Order) (subject, intro string) {
	switch kind {
	case eventPlaced:
		if o.PaymentMethod == models.PaymentOnline && o.PaymentStatus != models.PaymentPaid {
			return fmt.Sprintf("Order %s received", o.OrderNumber),
				fmt.Sprintf("We have received order %s and are waiting for your payment.", o.OrderNumber)
		}
		return fmt.Sprintf("Order %s confirmed", o.OrderNumber),
			fmt.Sprintf("Thank you! Order %s is confirmed.", o.OrderNumber)
	case eventPaid:
		return fmt.Sprintf("Payment received for %s", o.OrderNumber),
			fmt.Sprintf("Your payment for order %s was successful. We will start baking soon.", o.OrderNumber)
	}
	return fmt.Sprintf("Order %s is %s", o.OrderNumber, strings.ReplaceAll(string(o.Status), "_", " ")),
		fmt.Sprintf("Order %s is now %s.", o.OrderNumber, strings.ReplaceAll(string(o.Status), "_", " "))
}

func renderOrder(store storeInfo, kind string, o *models.Order) (Message, error) {
	subject, intro := orderIntro(kind, o)
	var buf bytes.Buffer
	err := orderTemplate.Execute(&buf, map[string]any{
		"Name":  o.Shipping.Name,
		"Intro": intro,
		"Order": o,
		"Link":  store.orderLink(o),
		"Store": store.Name,
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render %s email: %w", kind, err)
	}
	return Message{To: o.Email, Subject: subject, HTML: buf.String(), Text: intro, Tag: "order-" + kind}, nil
}

func renderWelcome(store storeInfo, email string) (Message, error) {
	var buf bytes.Buffer
	if err := welcomeTemplate.Execute(&buf, map[string]any{"Store": store.Name, "Link": store.FrontendURL}); err != nil {
		return Message{}, fmt.Errorf("failed to render welcome email: %w", err)
	}
	return Message{
		To:      email,
		Subject: "Welcome to " + store.Name,
		HTML:    buf.String(),
		Text:    "Thanks for subscribing to " + store.Name + "!",
		Tag:     "newsletter-welcome",
	}, nil
}
