package scenario

// An in-memory stand-in for the commerce platform, implementing just
// enough of its cart surface to drive the walkthrough: integer version
// counters bumped on every successful mutation, 409 on stale versions,
// generated line item ids, item shipping addresses, and the platform's
// allocation rule (shipping targets may never exceed the line item
// quantity). Ids are deterministic so snapshots can be golden-compared.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2/clientcredentials"

	"multiship/internal/commercetools"
	"multiship/internal/model"
)

const (
	fakeProject      = "demo-project"
	fakeClientID     = "demo-client"
	fakeClientSecret = "demo-secret"
	fakeToken        = "fake-access-token"
)

type fakeLineItem struct {
	id        string
	productID string
	quantity  int64
	targets   []commercetools.ItemShippingTarget
}

type fakeCart struct {
	id        string
	version   int64
	items     []*fakeLineItem
	addresses []commercetools.Address
}

type fakePlatform struct {
	mu          sync.Mutex
	carts       map[string]*fakeCart
	cartSeq     int
	itemSeq     int
	resourceSeq int
	lastProduct string

	srv *httptest.Server
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()

	f := &fakePlatform{carts: make(map[string]*fakeCart)}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", f.handleToken)
	mux.HandleFunc("/"+fakeProject+"/", f.handleAPI)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// client returns a platform client authenticated against the fake's own
// token endpoint, so the full client-credentials flow is exercised.
func (f *fakePlatform) client(t *testing.T) *commercetools.Client {
	t.Helper()

	cc := &clientcredentials.Config{
		ClientID:     fakeClientID,
		ClientSecret: fakeClientSecret,
		TokenURL:     f.srv.URL + "/oauth/token",
		Scopes:       []string{"manage_project:" + fakeProject},
	}

	client, err := commercetools.New(commercetools.Config{
		APIURL:     f.srv.URL,
		ProjectKey: fakeProject,
		HTTPClient: cc.Client(context.Background()),
	})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return client
}

func (f *fakePlatform) handleToken(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != fakeClientID || pass != fakeClientSecret {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_client"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","expires_in":172800}`, fakeToken)
}

func (f *fakePlatform) handleAPI(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+fakeToken {
		writeError(w, 401, "invalid_token", "missing or invalid bearer token", 0)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/"+fakeProject+"/")
	switch {
	case path == "product-types" && r.Method == http.MethodPost:
		f.resourceSeq++
		writeJSON(w, map[string]any{"id": fmt.Sprintf("ptype-%d", f.resourceSeq), "version": 1})
	case path == "tax-categories" && r.Method == http.MethodPost:
		f.resourceSeq++
		writeJSON(w, map[string]any{"id": fmt.Sprintf("taxcat-%d", f.resourceSeq), "version": 1})
	case path == "products" && r.Method == http.MethodPost:
		f.resourceSeq++
		f.lastProduct = fmt.Sprintf("prod-%d", f.resourceSeq)
		writeJSON(w, map[string]any{"id": f.lastProduct, "version": 1})
	case path == "carts" && r.Method == http.MethodPost:
		f.cartSeq++
		cart := &fakeCart{id: fmt.Sprintf("cart-%d", f.cartSeq), version: 1}
		f.carts[cart.id] = cart
		writeJSON(w, f.render(cart))
	case strings.HasPrefix(path, "carts/"):
		f.handleCart(w, r, strings.TrimPrefix(path, "carts/"))
	default:
		writeError(w, 404, "ResourceNotFound", "no such resource", 0)
	}
}

func (f *fakePlatform) handleCart(w http.ResponseWriter, r *http.Request, id string) {
	cart, ok := f.carts[id]
	if !ok {
		writeError(w, 404, "ResourceNotFound", "cart not found", 0)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, f.render(cart))
	case http.MethodDelete:
		delete(f.carts, id)
		writeJSON(w, f.render(cart))
	case http.MethodPost:
		var update commercetools.CartUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeError(w, 400, "InvalidJsonInput", "malformed request body", 0)
			return
		}
		if update.Version != cart.version {
			writeError(w, 409, "ConcurrentModification", "cart version mismatch", cart.version)
			return
		}
		for _, action := range update.Actions {
			if status, code, msg := f.apply(cart, action); status != 0 {
				writeError(w, status, code, msg, 0)
				return
			}
		}
		cart.version++
		writeJSON(w, f.render(cart))
	default:
		writeError(w, 405, "MethodNotAllowed", "unsupported method", 0)
	}
}

// apply executes one update action. Returns a non-zero status on rejection.
func (f *fakePlatform) apply(cart *fakeCart, action commercetools.CartUpdateAction) (int, string, string) {
	switch action.Action {
	case "addLineItem":
		quantity := int64(1)
		if action.Quantity != nil {
			quantity = *action.Quantity
		}
		f.itemSeq++
		li := &fakeLineItem{
			id:        fmt.Sprintf("li-%d", f.itemSeq),
			productID: f.lastProduct,
			quantity:  quantity,
		}
		if li.productID == "" {
			li.productID = "prod-0"
		}
		if action.ShippingDetails != nil {
			if status, code, msg := f.checkTargets(cart, action.ShippingDetails.Targets, quantity); status != 0 {
				return status, code, msg
			}
			li.targets = action.ShippingDetails.Targets
		}
		cart.items = append(cart.items, li)

	case "addItemShippingAddress":
		if action.Address == nil || action.Address.Key == "" {
			return 400, "InvalidOperation", "address with key is required"
		}
		cart.addresses = append(cart.addresses, *action.Address)

	case "setLineItemShippingDetails":
		li := cart.find(action.LineItemID)
		if li == nil {
			return 400, "InvalidOperation", "line item not found: " + action.LineItemID
		}
		if action.ShippingDetails == nil {
			return 400, "InvalidOperation", "shippingDetails is required"
		}
		if status, code, msg := f.checkTargets(cart, action.ShippingDetails.Targets, li.quantity); status != 0 {
			return status, code, msg
		}
		li.targets = action.ShippingDetails.Targets

	case "removeLineItem":
		li := cart.find(action.LineItemID)
		if li == nil {
			return 400, "InvalidOperation", "line item not found: " + action.LineItemID
		}
		items := cart.items[:0]
		for _, it := range cart.items {
			if it.id != action.LineItemID {
				items = append(items, it)
			}
		}
		cart.items = items

	case "changeLineItemQuantity":
		li := cart.find(action.LineItemID)
		if li == nil {
			return 400, "InvalidOperation", "line item not found: " + action.LineItemID
		}
		if action.Quantity == nil {
			return 400, "InvalidOperation", "quantity is required"
		}
		if allocated(li.targets) > *action.Quantity {
			return 400, "InvalidOperation", "shipping target allocation exceeds the new quantity"
		}
		li.quantity = *action.Quantity

	default:
		return 400, "InvalidOperation", "unknown action: " + action.Action
	}

	return 0, "", ""
}

// checkTargets enforces the allocation rule: every target must address an
// attached shipping address, and the allocations may not exceed quantity.
func (f *fakePlatform) checkTargets(cart *fakeCart, targets []commercetools.ItemShippingTarget, quantity int64) (int, string, string) {
	for _, target := range targets {
		found := false
		for _, addr := range cart.addresses {
			if addr.Key == target.AddressKey {
				found = true
				break
			}
		}
		if !found {
			return 400, "InvalidOperation", "unknown address key: " + target.AddressKey
		}
	}
	if allocated(targets) > quantity {
		return 400, "InvalidOperation", "shipping target allocation exceeds the line item quantity"
	}
	return 0, "", ""
}

func (c *fakeCart) find(id string) *fakeLineItem {
	for _, li := range c.items {
		if li.id == id {
			return li
		}
	}
	return nil
}

func allocated(targets []commercetools.ItemShippingTarget) int64 {
	var sum int64
	for _, t := range targets {
		sum += t.Quantity
	}
	return sum
}

// render builds the wire representation of a cart.
func (f *fakePlatform) render(cart *fakeCart) commercetools.Cart {
	items := make([]commercetools.LineItem, 0, len(cart.items))
	var total int64
	for _, li := range cart.items {
		lineTotal := li.quantity * 1000
		total += lineTotal

		var details *commercetools.ItemShippingDetails
		if li.targets != nil {
			details = &commercetools.ItemShippingDetails{
				Targets: li.targets,
				Valid:   allocated(li.targets) == li.quantity,
			}
		}
		items = append(items, commercetools.LineItem{
			ID:              li.id,
			ProductID:       li.productID,
			Quantity:        li.quantity,
			TotalPrice:      model.Cents("EUR", lineTotal),
			ShippingDetails: details,
		})
	}

	return commercetools.Cart{
		ID:                    cart.id,
		Version:               cart.version,
		LineItems:             items,
		ItemShippingAddresses: cart.addresses,
		TotalPrice:            model.Cents("EUR", total),
		CartState:             "Active",
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, currentVersion int64) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	detail := map[string]any{"code": code, "message": message}
	if currentVersion > 0 {
		detail["currentVersion"] = currentVersion
	}
	json.NewEncoder(w).Encode(map[string]any{
		"statusCode": status,
		"message":    message,
		"errors":     []any{detail},
	})
}
