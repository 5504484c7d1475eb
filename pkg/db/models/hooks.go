package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are generated app-side when absent so creates behave the same
// on Postgres and on the sqlite databases used in tests.

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error { ensureID(&u.ID); return nil }

func (c *Customer) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

func (p *Product) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

func (r *ProductBulkPriceRule) BeforeCreate(*gorm.DB) error { ensureID(&r.ID); return nil }

func (c *CartItem) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

func (o *Order) BeforeCreate(*gorm.DB) error { ensureID(&o.ID); return nil }

func (i *OrderItem) BeforeCreate(*gorm.DB) error { ensureID(&i.ID); return nil }

func (e *OrderTrackingEvent) BeforeCreate(*gorm.DB) error { ensureID(&e.ID); return nil }

func (p *Payment) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

func (p *Prescription) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

func (b *InventoryBatch) BeforeCreate(*gorm.DB) error { ensureID(&b.ID); return nil }

func (m *InventoryMovement) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }

func (n *Notification) BeforeCreate(*gorm.DB) error { ensureID(&n.ID); return nil }

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error { ensureID(&e.ID); return nil }

func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error { ensureID(&d.ID); return nil }
