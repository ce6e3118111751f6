package api

import (
	"net/http"
	"strings"

	"github.com/ashureev/shopagent/internal/app"
	"github.com/ashureev/shopagent/internal/cart"
)

// AddItemRequest is the body of POST /api/cart/items.
type AddItemRequest struct {
	ID    cart.ProductID `json:"id"`
	Name  string         `json:"name"`
	Price float64        `json:"price"`
}

// CartResponse carries the cart and the effects of the change.
type CartResponse struct {
	Cart    cart.Cart    `json:"cart"`
	Effects *app.Effects `json:"effects,omitempty"`
}

// GetCart returns the device's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, CartResponse{Cart: sess.App.Cart.Load(r.Context())})
}

// AddCartItem adds one unit of a product.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" || req.Name == "" || req.Price < 0 {
		Error(w, http.StatusBadRequest, "id, name and a non-negative price are required")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var (
		c   cart.Cart
		err error
	)
	eff := sess.Apply(func(a *app.App) {
		c, err = a.AddToCart(r.Context(), req.ID, req.Name, req.Price)
	})
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to save cart")
		return
	}
	JSON(w, http.StatusOK, CartResponse{Cart: c, Effects: &eff})
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var err error
	eff := sess.Apply(func(a *app.App) {
		if err = a.Cart.Clear(r.Context()); err == nil {
			a.RefreshCart(r.Context())
		}
	})
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}
	JSON(w, http.StatusOK, CartResponse{Cart: sess.App.Cart.Load(r.Context()), Effects: &eff})
}
