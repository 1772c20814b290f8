// Package model holds the scaffold's entity records and kind descriptors.
package model

import (
	"errors"
	"time"
)

var (
	ErrEmailEmpty    = errors.New("email required")
	ErrNameEmpty     = errors.New("name required")
	ErrSlugEmpty     = errors.New("slug required")
	ErrTenantIDEmpty = errors.New("tenant id required")
)

// Kind describes where one entity type lives in each backing store and
// which columns may appear in filters and ordering.
type Kind struct {
	Name       string
	Table      string
	Collection string
	Columns    []string
}

var (
	KindUsers = Kind{
		Name:       "users",
		Table:      "users",
		Collection: "users",
		Columns:    []string{"id", "tenant_id", "email", "name", "created_at", "updated_at"},
	}
	KindTenants = Kind{
		Name:       "tenants",
		Table:      "tenants",
		Collection: "tenants",
		Columns:    []string{"id", "name", "slug", "plan", "created_at", "updated_at"},
	}
	KindOrganizations = Kind{
		Name:       "organizations",
		Table:      "organizations",
		Collection: "organizations",
		Columns:    []string{"id", "tenant_id", "name", "domain", "created_at", "updated_at"},
	}
)

// Kinds returns every entity kind in stable order.
func Kinds() []Kind {
	return []Kind{KindUsers, KindTenants, KindOrganizations}
}

// KindByName resolves an entity kind from its route name.
func KindByName(name string) (Kind, bool) {
	for _, k := range Kinds() {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

// HasColumn reports whether col is filterable/orderable for this kind.
func (k Kind) HasColumn(col string) bool {
	for _, c := range k.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Meta carries the identifier and timestamps shared by every record.
type Meta struct {
	ID        string    `db:"id" bson:"_id" json:"id"`
	CreatedAt time.Time `db:"created_at" bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" bson:"updated_at" json:"updated_at"`
}

func (m *Meta) RecordID() string         { return m.ID }
func (m *Meta) SetRecordID(id string)    { m.ID = id }
func (m *Meta) StampCreated(t time.Time) { m.CreatedAt = t }
func (m *Meta) StampUpdated(t time.Time) { m.UpdatedAt = t }

type User struct {
	Meta     `bson:",inline"`
	TenantID string `db:"tenant_id" bson:"tenant_id" json:"tenant_id"`
	Email    string `db:"email" bson:"email" json:"email"`
	Name     string `db:"name" bson:"name" json:"name"`
}

func (u *User) Validate() error {
	if u.Email == "" {
		return ErrEmailEmpty
	}
	if u.Name == "" {
		return ErrNameEmpty
	}
	if u.TenantID == "" {
		return ErrTenantIDEmpty
	}
	return nil
}

type Tenant struct {
	Meta `bson:",inline"`
	Name string `db:"name" bson:"name" json:"name"`
	Slug string `db:"slug" bson:"slug" json:"slug"`
	Plan string `db:"plan" bson:"plan" json:"plan"`
}

func (t *Tenant) Validate() error {
	if t.Name == "" {
		return ErrNameEmpty
	}
	if t.Slug == "" {
		return ErrSlugEmpty
	}
	return nil
}

type Organization struct {
	Meta     `bson:",inline"`
	TenantID string `db:"tenant_id" bson:"tenant_id" json:"tenant_id"`
	Name     string `db:"name" bson:"name" json:"name"`
	Domain   string `db:"domain" bson:"domain" json:"domain"`
}

func (o *Organization) Validate() error {
	if o.Name == "" {
		return ErrNameEmpty
	}
	if o.TenantID == "" {
		return ErrTenantIDEmpty
	}
	return nil
}
