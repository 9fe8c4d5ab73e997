// Package orderstatus builds the shop's order status page URL for order
// tracking handoff.
package orderstatus

import (
	"net/mail"
	"net/url"
	"strings"

	"storefront/internal/model"
)

const statusPath = "/tools/order-status"

// StatusURL returns https://{shopDomain}/tools/order-status with the order
// number (leading "#" stripped) and email as query parameters.
func StatusURL(shopDomain, orderNumber, email string) (string, error) {
	shopDomain = strings.TrimSpace(shopDomain)
	if shopDomain == "" {
		return "", model.NewValidationError("shop_domain", "must not be empty")
	}

	orderNumber = strings.TrimPrefix(strings.TrimSpace(orderNumber), "#")
	if orderNumber == "" {
		return "", model.NewValidationError("order_number", "must not be empty")
	}

	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", model.NewValidationError("email", "must be a valid email address")
	}

	q := url.Values{}
	q.Set("order_number", orderNumber)
	q.Set("email", email)

	u := url.URL{
		Scheme:   "https",
		Host:     shopDomain,
		Path:     statusPath,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}
