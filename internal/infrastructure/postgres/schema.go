package postgres

import (
	"context"
	"fmt"
)

// schema DDL del almacén central usado por el terminal. Idempotente: se aplica en cada arranque.
const schema = `
CREATE TABLE IF NOT EXISTS stock (
	location_id   TEXT NOT NULL,
	stock_item_id TEXT NOT NULL,
	quantity      NUMERIC(20, 6) NOT NULL DEFAULT 0,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (location_id, stock_item_id)
);

CREATE TABLE IF NOT EXISTS stock_movements (
	id              UUID PRIMARY KEY,
	idempotency_key TEXT UNIQUE,
	location_id     TEXT NOT NULL,
	stock_item_id   TEXT NOT NULL,
	kind            TEXT NOT NULL,
	quantity        NUMERIC(20, 6) NOT NULL,
	note            TEXT NOT NULL DEFAULT '',
	order_ref       TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_stock_movements_order_ref ON stock_movements (order_ref);

CREATE TABLE IF NOT EXISTS semi_finished_products (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL DEFAULT '',
	output_quantity NUMERIC(20, 6)
);

CREATE TABLE IF NOT EXISTS semi_finished_ingredients (
	semi_finished_id TEXT NOT NULL REFERENCES semi_finished_products (id) ON DELETE CASCADE,
	line_no          INT NOT NULL,
	component_kind   TEXT NOT NULL CHECK (component_kind IN ('stock_item', 'semi_finished')),
	component_id     TEXT NOT NULL,
	quantity         NUMERIC(20, 6) NOT NULL,
	PRIMARY KEY (semi_finished_id, line_no)
);

CREATE TABLE IF NOT EXISTS recipe_lines (
	sold_item_id   TEXT NOT NULL,
	line_no        INT NOT NULL,
	component_kind TEXT NOT NULL CHECK (component_kind IN ('stock_item', 'semi_finished')),
	component_id   TEXT NOT NULL,
	quantity       NUMERIC(20, 6) NOT NULL,
	PRIMARY KEY (sold_item_id, line_no)
);

CREATE TABLE IF NOT EXISTS orders (
	id              UUID PRIMARY KEY,
	idempotency_key TEXT NOT NULL UNIQUE,
	location_id     TEXT NOT NULL,
	subtotal        NUMERIC(20, 2) NOT NULL,
	discount        NUMERIC(20, 2) NOT NULL DEFAULT 0,
	total           NUMERIC(20, 2) NOT NULL,
	payment_method  TEXT NOT NULL DEFAULT '',
	created_by      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS order_lines (
	order_id     UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	line_no      INT NOT NULL,
	sold_item_id TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	quantity     NUMERIC(20, 6) NOT NULL,
	unit_price   NUMERIC(20, 2) NOT NULL,
	PRIMARY KEY (order_id, line_no)
);
`

// Migrate aplica el esquema.
func Migrate(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, schema); err != nil {
		return fmt.Errorf("aplicar esquema: %w", err)
	}
	return nil
}
