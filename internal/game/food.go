package game

import "math/rand"

// FoodKind identifies a row of the food catalog. The string is the wire value.
type FoodKind string

const (
	FoodKubernetes    FoodKind = "KUBERNETES"
	FoodPrometheus    FoodKind = "PROMETHEUS"
	FoodHelm          FoodKind = "HELM"
	FoodContainer     FoodKind = "CONTAINER"
	FoodObservability FoodKind = "OBSERVABILITY"
)

// FoodSpec holds the scoring and display data of a food kind.
type FoodSpec struct {
	Points int    `json:"points"`
	Bonus  int    `json:"bonus"`
	Name   string `json:"name"`
	Emoji  string `json:"emoji"`
}

// Catalog order is fixed so seeded picks are reproducible.
var foodKinds = []FoodKind{
	FoodKubernetes,
	FoodPrometheus,
	FoodHelm,
	FoodContainer,
	FoodObservability,
}

var foodCatalog = map[FoodKind]FoodSpec{
	FoodKubernetes:    {Points: 10, Bonus: 5, Name: "Kubernetes Pod", Emoji: "☸️"},
	FoodPrometheus:    {Points: 10, Bonus: 5, Name: "Prometheus Metric", Emoji: "📊"},
	FoodHelm:          {Points: 15, Bonus: 10, Name: "Helm Chart", Emoji: "⎈"},
	FoodContainer:     {Points: 20, Bonus: 15, Name: "Container Image", Emoji: "📦"},
	FoodObservability: {Points: 25, Bonus: 20, Name: "Full Observability Stack", Emoji: "👁️"},
}

// FoodKinds lists every kind in catalog order.
func FoodKinds() []FoodKind {
	out := make([]FoodKind, len(foodKinds))
	copy(out, foodKinds)
	return out
}

func LookupFood(kind FoodKind) (FoodSpec, bool) {
	spec, ok := foodCatalog[kind]
	return spec, ok
}

// FoodCatalog returns a copy of the catalog keyed by kind.
func FoodCatalog() map[FoodKind]FoodSpec {
	out := make(map[FoodKind]FoodSpec, len(foodCatalog))
	for kind, spec := range foodCatalog {
		out[kind] = spec
	}
	return out
}

func randomFoodKind(rng *rand.Rand) FoodKind {
	return foodKinds[rng.Intn(len(foodKinds))]
}

// FoodItem is a piece of food lying on the grid.
type FoodItem struct {
	Position Position
	Kind     FoodKind
}
