package vectordb

// Metric is the similarity measure a collection is built for.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
	MetricL2     Metric = "l2"
)

// CollectionSpec describes a collection's fixed schema.
type CollectionSpec struct {
	Name      string
	Dimension int
	Metric    Metric
}

// Record is one indexed chunk: its vector, text and flat metadata.
type Record struct {
	ID        string
	Text      string
	Metadata  map[string]string
	Embedding []float32
}

// SearchResult pairs a record with its similarity to the query.
type SearchResult struct {
	Record     Record
	Similarity float32
}

// DefaultMMRLambda weighs relevance and diversity equally.
const DefaultMMRLambda = 0.5

// SearchOptions controls retrieval.
type SearchOptions struct {
	// K is the number of results to return.
	K int
	// FetchK is the candidate pool size for diversification. Must be >= K.
	FetchK int
	// Diversify enables maximal marginal relevance re-ranking.
	Diversify bool
	// Lambda is the MMR relevance weight in [0, 1]; 0 means DefaultMMRLambda.
	Lambda float32
	// Where restricts results to records whose metadata matches every pair.
	Where map[string]string
}

func (o SearchOptions) lambda() float32 {
	if o.Lambda <= 0 || o.Lambda > 1 {
		return DefaultMMRLambda
	}
	return o.Lambda
}
