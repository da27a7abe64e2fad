package search

// DefaultIndexName is the default Elasticsearch index for product documents.
const DefaultIndexName = "marketplace_products"

// buildIndexMapping returns the full JSON mapping for the products index,
// including an edge-ngram analyzer for autocomplete.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":             { "type": "keyword" },
      "name":           { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "autocomplete_search" } } },
      "description":    { "type": "text" },
      "price":          { "type": "double" },
      "quantity":       { "type": "integer" },
      "featured":       { "type": "boolean" },
      "active":         { "type": "boolean" },
      "store_id":       { "type": "keyword" },
      "store_name":     { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "category_ids":   { "type": "keyword" },
      "category_names": { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "created_at":     { "type": "date" },
      "updated_at":     { "type": "date" }
    }
  }
}`
}
