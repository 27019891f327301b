package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/tilldesk/internal/catalog"
	"github.com/tilldesk/tilldesk/internal/customers"
	"github.com/tilldesk/tilldesk/internal/shared"
)

// ProductPort is the slice of the catalog the cart needs.
type ProductPort interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

// CustomerPort is the slice of the customer registry the cart needs.
type CustomerPort interface {
	Get(ctx context.Context, id string) (customers.Customer, error)
}

// ErrFractionalLine indicates a quantity update on a weighed line; weighed
// lines are re-weighed, not edited.
var ErrFractionalLine = errors.New("pos: weighed lines cannot change quantity")

// CartService manages the session-held cart. The cart lives and dies with
// the login session; there is no cart table.
type CartService struct {
	products  ProductPort
	customers CustomerPort
	sessions  *shared.SessionManager
}

// NewCartService builds CartService.
func NewCartService(products ProductPort, custs CustomerPort, sessions *shared.SessionManager) *CartService {
	return &CartService{products: products, customers: custs, sessions: sessions}
}

// Cart decodes the session's cart, returning an empty cart when none exists.
func (s *CartService) Cart(sess *shared.Session) (Cart, error) {
	raw := sess.Cart()
	if len(raw) == 0 {
		return Cart{}, nil
	}
	var cart Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

// AddItemInput describes a line addition. ActualWeight is set for weighed
// bulk portions and fixes the line total at weighing time.
type AddItemInput struct {
	ProductID    string
	Quantity     float64
	Discount     decimal.Decimal
	ActualWeight float64
}

// AddItem appends or merges a cart line. Lines for the same unit product at
// the same price merge; weighed lines always get their own line.
func (s *CartService) AddItem(ctx context.Context, sess *shared.Session, in AddItemInput) (Cart, error) {
	product, err := s.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		return Cart{}, err
	}
	if !product.IsActive {
		return Cart{}, catalog.ErrNotFound
	}

	cart, err := s.Cart(sess)
	if err != nil {
		return Cart{}, err
	}

	unitPrice, err := s.priceFor(ctx, product, cart.CustomerID)
	if err != nil {
		return Cart{}, err
	}

	if product.ItemType == catalog.ItemTypeBulk && in.ActualWeight > 0 {
		// Weighed portion: quantity is the weight and the total is fixed now.
		total := product.PricePerBaseUnit.Mul(decimal.NewFromFloat(in.ActualWeight)).Sub(in.Discount)
		cart.Items = append(cart.Items, CartItem{
			LineID:       uuid.NewString(),
			ProductID:    product.ID,
			Name:         product.Name,
			UnitPrice:    product.PricePerBaseUnit,
			Quantity:     in.ActualWeight,
			Discount:     in.Discount,
			Fractional:   true,
			ActualWeight: in.ActualWeight,
			LineTotal:    total,
		})
		return cart, s.save(ctx, sess, cart)
	}

	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	merged := false
	for i := range cart.Items {
		line := &cart.Items[i]
		if line.Fractional || line.ProductID != product.ID || !line.UnitPrice.Equal(unitPrice) {
			continue
		}
		line.Quantity += in.Quantity
		line.Discount = line.Discount.Add(in.Discount)
		line.LineTotal = lineTotal(line.UnitPrice, line.Quantity, line.Discount)
		merged = true
		break
	}
	if !merged {
		cart.Items = append(cart.Items, CartItem{
			LineID:    uuid.NewString(),
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: unitPrice,
			Quantity:  in.Quantity,
			Discount:  in.Discount,
			LineTotal: lineTotal(unitPrice, in.Quantity, in.Discount),
		})
	}
	return cart, s.save(ctx, sess, cart)
}

// UpdateQuantity changes a line's quantity; zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, sess *shared.Session, lineID string, quantity float64) (Cart, error) {
	cart, err := s.Cart(sess)
	if err != nil {
		return Cart{}, err
	}
	for i := range cart.Items {
		line := &cart.Items[i]
		if line.LineID != lineID {
			continue
		}
		if quantity <= 0 {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return cart, s.save(ctx, sess, cart)
		}
		if line.Fractional {
			return Cart{}, ErrFractionalLine
		}
		line.Quantity = quantity
		line.LineTotal = lineTotal(line.UnitPrice, line.Quantity, line.Discount)
		return cart, s.save(ctx, sess, cart)
	}
	return Cart{}, ErrLineNotFound
}

// RemoveLine drops a line from the cart.
func (s *CartService) RemoveLine(ctx context.Context, sess *shared.Session, lineID string) (Cart, error) {
	cart, err := s.Cart(sess)
	if err != nil {
		return Cart{}, err
	}
	for i := range cart.Items {
		if cart.Items[i].LineID == lineID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return cart, s.save(ctx, sess, cart)
		}
	}
	return Cart{}, ErrLineNotFound
}

// SetCustomer attaches a customer to the cart, or detaches with an empty id.
func (s *CartService) SetCustomer(ctx context.Context, sess *shared.Session, customerID string) (Cart, error) {
	cart, err := s.Cart(sess)
	if err != nil {
		return Cart{}, err
	}
	if customerID != "" {
		if _, err := s.customers.Get(ctx, customerID); err != nil {
			return Cart{}, err
		}
	}
	cart.CustomerID = customerID
	return cart, s.save(ctx, sess, cart)
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, sess *shared.Session) error {
	sess.ClearCart()
	return s.sessions.Save(ctx, sess)
}

func (s *CartService) priceFor(ctx context.Context, product catalog.Product, customerID string) (decimal.Decimal, error) {
	price := product.RetailPrice
	if customerID == "" {
		return price, nil
	}
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	if customer.Type == customers.TypeWholesale && product.WholesalePrice.IsPositive() {
		price = product.WholesalePrice
	}
	return price, nil
}

func (s *CartService) save(ctx context.Context, sess *shared.Session, cart Cart) error {
	cart.UpdatedAt = time.Now()
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	sess.SetCart(data)
	return s.sessions.Save(ctx, sess)
}

func lineTotal(unitPrice decimal.Decimal, quantity float64, discount decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromFloat(quantity)).Sub(discount)
}
