package search

// AnalysisSettings is the shared text analysis configuration for the
// candidate indices. The skills char filter rewrites tokens the
// standard tokenizer would otherwise mangle (C#, C++, .NET).
var AnalysisSettings = map[string]any{
	"char_filter": map[string]any{
		"skills": map[string]any{
			"type":     "mapping",
			"mappings": []string{"C# => csharp", "F# => fsharp", "C++ => _cpp_", ".NET => dotnet", ".Net => dotnet"},
		},
	},
	"filter": map[string]any{
		"light_en_stemmer": map[string]any{
			"type":     "stemmer",
			"language": "light_english",
		},
	},
	"analyzer": map[string]any{
		"prime_analyzer": map[string]any{
			"type":        "custom",
			"tokenizer":   "standard",
			"char_filter": []string{"skills"},
			"filter":      []string{"lowercase", "stop", "light_en_stemmer"},
		},
	},
}

// metadataIndexBody is the index creation body for the per-candidate
// metadata index.
func metadataIndexBody() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"candidateId":       map[string]any{"type": "keyword"},
				"country":           map[string]any{"type": "text", "analyzer": "prime_analyzer"},
				"lastActivity":      map[string]any{"type": "date"},
				"workMidDay":        map[string]any{"type": "integer"},
				"minCompPerHr":      map[string]any{"type": "integer"},
				"availability":      map[string]any{"type": "keyword"},
				"detectedTimezone":  map[string]any{"type": "float"},
				"targetCompPerHr":   map[string]any{"type": "integer"},
				"badges": map[string]any{
					"type": "nested",
					"properties": map[string]any{
						"id":    map[string]any{"type": "keyword"},
						"stars": map[string]any{"type": "integer"},
					},
				},
				"jobTitles":                 map[string]any{"type": "text", "analyzer": "prime_analyzer"},
				"resumeProfile":             map[string]any{"type": "text", "analyzer": "prime_analyzer"},
				"resumeFile":                map[string]any{"type": "text", "analyzer": "prime_analyzer"},
				"acceptableCompensation":    map[string]any{"type": "integer"},
				"desiredCompensation":       map[string]any{"type": "integer"},
				"careerGoals":               map[string]any{"type": "text"},
				"currentCompensation":       map[string]any{"type": "text"},
				"currentCompensationPeriod": map[string]any{"type": "text"},
				"workingHours": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"utcStart": map[string]any{"type": "integer"},
						"utcEnd":   map[string]any{"type": "integer"},
						"flexible": map[string]any{"type": "boolean"},
					},
				},
				"availabilityToStart": map[string]any{"type": "integer"},
				"domains":             map[string]any{"type": "text"},
				"bfqAnswers":          map[string]any{"type": "object"},
				"bfqKeywords":         map[string]any{"type": "text"},
			},
		},
		"settings": map[string]any{
			"analysis": AnalysisSettings,
		},
	}
}
