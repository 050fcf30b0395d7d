package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bookstore-pricing/internal/domain/book"
	"github.com/xenking/bookstore-pricing/internal/domain/customer"
	"github.com/xenking/bookstore-pricing/internal/domain/discount"
	"github.com/xenking/bookstore-pricing/internal/domain/pricing"
	"github.com/xenking/bookstore-pricing/internal/domain/promo"
)

type memBookRepo struct {
	books []book.Book
}

func (m *memBookRepo) List(_ context.Context) ([]book.Book, error) {
	return m.books, nil
}

func (m *memBookRepo) GetByTitles(_ context.Context, titles []string) ([]book.Book, error) {
	var out []book.Book
	for _, title := range titles {
		for _, b := range m.books {
			if b.Title == title {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (m *memBookRepo) ListByAuthor(_ context.Context, author string) ([]book.Book, error) {
	var out []book.Book
	for _, b := range m.books {
		if b.Author == author {
			out = append(out, b)
		}
	}
	return out, nil
}

type memCustomerRepo struct {
	customers []*customer.Customer
}

func (m *memCustomerRepo) GetByUsername(_ context.Context, username string) (*customer.Customer, error) {
	for _, c := range m.customers {
		if c.Username == username {
			return c, nil
		}
	}
	return nil, errors.Wrapf(customer.ErrNotFound, "username %s", username)
}

func (m *memCustomerRepo) List(_ context.Context) ([]*customer.Customer, error) {
	return m.customers, nil
}

func (m *memCustomerRepo) SaveWallet(_ context.Context, _ *customer.Customer) error {
	return nil
}

type memTemplateStore struct{}

func (memTemplateStore) UpsertTemplate(_ context.Context, _ *discount.Template) error {
	return nil
}

type memQuoteRepo struct {
	created []*pricing.Quote
}

func (m *memQuoteRepo) Create(_ context.Context, q *pricing.Quote) error {
	m.created = append(m.created, q)
	return nil
}

type fixedProvider struct {
	cost decimal.Decimal
}

func (p fixedProvider) Cost(_ context.Context, _, _ string) (decimal.Decimal, error) {
	return p.cost, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *customer.Customer) {
	t.Helper()

	john := customer.New("john_doe", "berlin", time.Date(2022, 2, 10, 0, 0, 0, 0, time.UTC))

	books := &memBookRepo{books: []book.Book{
		{Title: "The Hitchhiker's Guide to the Galaxy", Author: "Douglas Adams", UnitPrice: decimal.RequireFromString("12.99")},
		{Title: "Dune", Author: "Frank Herbert", UnitPrice: decimal.RequireFromString("14.95")},
	}}
	customers := &memCustomerRepo{customers: []*customer.Customer{john}}

	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	coupon, err := discount.NewCouponTemplate(4, from, from.AddDate(20, 0, 0), decimal.NewFromFloat(0.15), 1, "WELCOME15")
	require.NoError(t, err)
	general, err := discount.NewTemplate(3, from, from.AddDate(20, 0, 0), decimal.NewFromFloat(0.2), 3)
	require.NoError(t, err)
	registry, err := discount.NewRegistry(coupon, general)
	require.NoError(t, err)

	engine := pricing.NewEngine(fixedProvider{cost: decimal.RequireFromString("17.56")}, "paris")
	pricingSvc := pricing.NewService(books, customers, &memQuoteRepo{}, engine)
	promoSvc := promo.NewService(customers, memTemplateStore{}, promo.NewDistributor(registry))

	h := NewHandler(books, customers, pricingSvc, promoSvc)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, john
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHandler_ListBooks(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/books")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	books := decode[[]bookResponse](t, resp)
	require.Len(t, books, 2)
	assert.Equal(t, "The Hitchhiker's Guide to the Galaxy", books[0].Title)
	assert.InDelta(t, 12.99, books[0].UnitPrice, 1e-9)
}

func TestHandler_ListBooks_FilterByAuthor(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/books?author=Douglas+Adams")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	books := decode[[]bookResponse](t, resp)
	require.Len(t, books, 1)
	assert.Equal(t, "The Hitchhiker's Guide to the Galaxy", books[0].Title)
	assert.Equal(t, "Douglas Adams", books[0].Author)
}

func TestHandler_PriceQuote(t *testing.T) {
	srv, john := newTestServer(t)

	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tmpl, err := discount.NewTemplate(9, from, from.AddDate(20, 0, 0), decimal.NewFromFloat(0.1), 1)
	require.NoError(t, err)
	john.Grant(tmpl.Assign())

	resp := postJSON(t, srv.URL+"/api/quotes", quoteRequest{
		Username: "john_doe",
		Lines: []quoteRequestLine{
			{Title: "Dune", Quantity: 2},
		},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	q := decode[quoteResponse](t, resp)
	assert.Equal(t, "john_doe", q.Username)
	// 29.90 * 0.9 + 17.56 shipping.
	assert.InDelta(t, 26.91, q.Subtotal, 1e-9)
	assert.InDelta(t, 44.47, q.Total, 1e-9)
	assert.False(t, q.ShippingWaived)
	require.Len(t, q.Lines, 1)
	assert.Equal(t, "Dune", q.Lines[0].Title)
}

func TestHandler_PriceQuote_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{
			name:       "unknown customer",
			body:       quoteRequest{Username: "ghost", Lines: []quoteRequestLine{{Title: "Dune", Quantity: 1}}},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown book",
			body:       quoteRequest{Username: "john_doe", Lines: []quoteRequestLine{{Title: "No Such Book", Quantity: 1}}},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "empty order",
			body:       quoteRequest{Username: "john_doe"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "zero quantity",
			body:       quoteRequest{Username: "john_doe", Lines: []quoteRequestLine{{Title: "Dune", Quantity: 0}}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "missing username",
			body:       quoteRequest{Lines: []quoteRequestLine{{Title: "Dune", Quantity: 1}}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/quotes", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestHandler_RedeemCoupon(t *testing.T) {
	srv, john := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/coupons/redeem", redeemRequest{Username: "john_doe", Code: "welcome15"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, john.Assignments(), 1)
	assert.Equal(t, discount.KindCoupon, john.Assignments()[0].Kind)

	resp = postJSON(t, srv.URL+"/api/coupons/redeem", redeemRequest{Username: "john_doe", Code: "BOGUS"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/coupons/redeem", redeemRequest{Username: "john_doe"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_RunPromotion(t *testing.T) {
	srv, john := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/promotions/location", promotionRequest{DiscountID: 3, Location: "Berlin"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[promotionResponse](t, resp)
	assert.Equal(t, "location", body.Rule)
	assert.Equal(t, 1, body.Granted)
	assert.Len(t, john.Assignments(), 1)
}

func TestHandler_RunPromotion_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name       string
		rule       string
		body       any
		wantStatus int
	}{
		{"unknown rule", "flashsale", promotionRequest{DiscountID: 3}, http.StatusNotFound},
		{"unknown discount id", "tenure", promotionRequest{DiscountID: 42}, http.StatusNotFound},
		{"location without location", "location", promotionRequest{DiscountID: 3}, http.StatusBadRequest},
		{"author without author", "author", promotionRequest{DiscountID: 3}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/promotions/"+tt.rule, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestHandler_ListCustomerDiscounts(t *testing.T) {
	srv, john := newTestServer(t)

	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tmpl, err := discount.NewTemplate(9, from, from.AddDate(20, 0, 0), decimal.NewFromFloat(0.1), 5)
	require.NoError(t, err)
	john.Grant(tmpl.Assign())

	resp, err := http.Get(srv.URL + "/api/customers/john_doe/discounts")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]assignmentResponse](t, resp)
	require.Len(t, got, 1)
	assert.Equal(t, int64(9), got[0].DiscountID)
	assert.Equal(t, "general", got[0].Kind)
	assert.Equal(t, 5, got[0].Remaining)

	missing, err := http.Get(srv.URL + "/api/customers/ghost/discounts")
	require.NoError(t, err)
	defer func() { _ = missing.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
