// internal/game/deck.go
package game

import (
	"fmt"
	"math/rand"

	"github.com/KRYZL19/memory5/internal/models"
)

// DefaultStandardPoolSize matches the canonical deployment's image set.
const DefaultStandardPoolSize = 45

// StandardPool returns the refs of the numbered standard images
// (/images/bild1.jpg .. /images/bildN.jpg).
func StandardPool(size int) []string {
	pool := make([]string, size)
	for i := range pool {
		pool[i] = fmt.Sprintf("/images/bild%d.jpg", i+1)
	}
	return pool
}

// SelectImages picks `needed` distinct image refs. Custom images win:
// if there are enough of them, the result is a random sample of the
// custom list alone; otherwise all custom images are used and the
// remainder is sampled without replacement from the standard pool.
// Neither input slice is mutated.
func SelectImages(standard, custom []string, needed int, rng *rand.Rand) []string {
	if len(custom) >= needed {
		return sampleWithout(custom, needed, rng)
	}
	images := make([]string, 0, needed)
	images = append(images, custom...)
	images = append(images, sampleWithout(standard, needed-len(custom), rng)...)
	return images
}

// sampleWithout returns n elements of pool, each at most once, in random order.
func sampleWithout(pool []string, n int, rng *rand.Rand) []string {
	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

// BuildDeck duplicates every image once and deals the resulting multiset
// into a uniformly shuffled deck (Fisher-Yates via rand.Shuffle). Card ids
// are the positions after the shuffle, 0-based and stable for the game.
func BuildDeck(images []string, rng *rand.Rand) []*models.Card {
	faces := make([]string, 0, 2*len(images))
	faces = append(faces, images...)
	faces = append(faces, images...)
	rng.Shuffle(len(faces), func(i, j int) {
		faces[i], faces[j] = faces[j], faces[i]
	})

	deck := make([]*models.Card, len(faces))
	for i, img := range faces {
		deck[i] = &models.Card{ID: i, Image: img}
	}
	return deck
}
