package vector

import "github.com/vibhu2208/candidate-indexer/internal/search"

// Dimension is the embedding vector length the index is built for.
// Documents carrying a vector of any other length must not be written.
const Dimension = 1536

// vectorIndexBody is the index creation body for the per-chunk vector
// index. Metadata fields are denormalized onto every chunk so filters
// apply without a join.
func vectorIndexBody() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"candidateId":            map[string]any{"type": "keyword"},
				"acceptableCompensation": map[string]any{"type": "integer"},
				"availability":           map[string]any{"type": "keyword"},
				"availabilityToStart":    map[string]any{"type": "integer"},
				"badges": map[string]any{
					"type": "nested",
					"properties": map[string]any{
						"id":    map[string]any{"type": "keyword"},
						"stars": map[string]any{"type": "integer"},
						"score": map[string]any{"type": "integer"},
					},
				},
				"bfqAnswers":                map[string]any{"type": "object"},
				"bfqKeywords":               map[string]any{"type": "text"},
				"careerGoals":               map[string]any{"type": "text"},
				"country":                   map[string]any{"type": "text"},
				"currentCompensation":       map[string]any{"type": "text"},
				"currentCompensationPeriod": map[string]any{"type": "text"},
				"desiredCompensation":       map[string]any{"type": "integer"},
				"detectedTimezone":          map[string]any{"type": "float"},
				"domains":                   map[string]any{"type": "text"},
				"isEmailBounced":            map[string]any{"type": "boolean"},
				"jobTitles":                 map[string]any{"type": "text", "analyzer": "prime_analyzer"},
				"lastActivity":              map[string]any{"type": "date"},
				"minCompPerHr":              map[string]any{"type": "integer"},
				"resumeText":                map[string]any{"type": "text", "analyzer": "prime_analyzer"},
				"resumeVector": map[string]any{
					"type":      "knn_vector",
					"dimension": Dimension,
					"method": map[string]any{
						"engine":     "nmslib",
						"space_type": "cosinesimil",
						"name":       "hnsw",
						"parameters": map[string]any{"ef_construction": 512, "m": 16},
					},
				},
				"workingHours": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"utcStart": map[string]any{"type": "integer"},
						"utcEnd":   map[string]any{"type": "integer"},
						"flexible": map[string]any{"type": "boolean"},
					},
				},
			},
		},
		"settings": map[string]any{
			"index": map[string]any{
				"number_of_shards": 4,
				"knn.algo_param":   map[string]any{"ef_search": 512},
				"knn":              true,
			},
			"analysis": search.AnalysisSettings,
		},
	}
}
