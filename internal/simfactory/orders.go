// v2
// internal/simfactory/orders.go
package simfactory

import (
	"fmt"
	"math/rand"
)

type order struct {
	id        string
	products  []string
	createdAt int
}

type productRecord struct {
	orderID   string
	createdAt int
	doneAt    int
	firstPass bool
	completed bool
}

// orderBook tracks generated orders and per-product completion.
type orderBook struct {
	seq      int
	products map[string]*productRecord
}

func newOrderBook() *orderBook {
	return &orderBook{products: map[string]*productRecord{}}
}

func (b *orderBook) generate(simTime int, rng *rand.Rand) order {
	b.seq++
	id := fmt.Sprintf("order_%d", b.seq)
	count := 1 + rng.Intn(2)
	products := make([]string, 0, count)
	for i := 0; i < count; i++ {
		pid := fmt.Sprintf("%s_p%d", id, i+1)
		products = append(products, pid)
		b.products[pid] = &productRecord{orderID: id, createdAt: simTime}
	}
	return order{id: id, products: products, createdAt: simTime}
}

// complete marks a product finished and returns its cycle time in
// simulated seconds. Unknown or already-completed products report ok=false.
func (b *orderBook) complete(productID string, simTime int, firstPass bool) (int, bool) {
	rec, ok := b.products[productID]
	if !ok || rec.completed {
		return 0, false
	}
	rec.completed = true
	rec.doneAt = simTime
	rec.firstPass = firstPass
	return simTime - rec.createdAt, true
}

// knownProduct reports whether the product id belongs to any generated order.
func (b *orderBook) knownProduct(productID string) bool {
	_, ok := b.products[productID]
	return ok
}
