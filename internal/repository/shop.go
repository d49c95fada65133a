package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/store"
)

// ProductRepository is the pgx-backed ProductReader.
type ProductRepository struct {
	db *pgxpool.Pool
}

// NewProductRepository constructs a ProductRepository.
func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, price, original_price, category, description, image,
	stock, sale, featured, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.OriginalPrice, &p.Category,
		&p.Description, &p.Image, &p.Stock, &p.Sale, &p.Featured,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns a single product or store.ErrNotExist.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, store.ErrNotExist)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns products matching the filter, newest-first.
func (r *ProductRepository) List(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	var args []any
	if f.Category != "" {
		args = append(args, f.Category)
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	if f.FeaturedOnly {
		query += ` AND featured`
	}
	if f.SaleOnly {
		query += ` AND sale`
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// OrderRepository is the pgx-backed OrderReader.
type OrderRepository struct {
	db *pgxpool.Pool
}

// NewOrderRepository constructs an OrderRepository.
func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, user_id, user_email, user_name, items, total, status,
	shipping_address, payment_method, payment_id, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o        model.Order
		items    []byte
		shipping []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.UserName, &items, &o.Total,
		&o.Status, &shipping, &o.PaymentMethod, &o.PaymentID, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	return &o, nil
}

// GetByID returns a single order or store.ErrNotExist.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, store.ErrNotExist)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// List returns orders matching the filter, newest-first.
func (r *OrderRepository) List(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		query += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
