// Package kv abstracts the persistence collaborator: whole collections are
// JSON-serialized and stored under independent namespaces so a single
// collection can be reset or migrated without touching its siblings.
package kv

import (
	"context"
	"errors"
)

// Namespaces used by the clinic engine. Each one holds a complete
// JSON-serialized collection.
const (
	NSVaccinations   = "vaccinations"
	NSAntiparasitics = "antiparasitics"
	NSStockItems     = "stock:items"
	NSStockMovements = "stock:movements"
	NSAccounting     = "accounting:entries"
	NSProtocols      = "protocols"
	NSConsultations  = "clinic:consultations"
	NSPrescriptions  = "clinic:prescriptions"
)

// ErrNamespaceNotFound indicates no collection was ever written under the
// requested namespace. Callers treat it as an empty collection.
var ErrNamespaceNotFound = errors.New("kv: namespace not found")

// Store is the persistence collaborator contract. Save replaces the whole
// collection for one namespace; SaveAll replaces several collections as a
// single atomic unit so dual-writes never apply partially.
type Store interface {
	Load(ctx context.Context, namespace string, v any) error
	Save(ctx context.Context, namespace string, v any) error
	SaveAll(ctx context.Context, entries map[string]any) error
	Reset(ctx context.Context, namespace string) error
}
