package pubsub

import "fmt"

// Channel naming scheme. A channel identifies one entity's event stream:
//
//	"product:42:events"   — all ledger events for product 42
//	"user:0xabc...:events" — registration events for an address
//
// The Kafka driver folds these into per-kind topics keyed by entity id so
// that per-entity ordering survives partitioning.

// ProductChannel returns the channel for a product's event stream.
func ProductChannel(productID uint64) string {
	return fmt.Sprintf("product:%d:events", productID)
}

// UserChannel returns the channel for an address's event stream.
func UserChannel(address string) string {
	return fmt.Sprintf("user:%s:events", address)
}

// ProductPattern matches every product event stream.
func ProductPattern() string {
	return "product:*:events"
}

// UserPattern matches every user event stream.
func UserPattern() string {
	return "user:*:events"
}
