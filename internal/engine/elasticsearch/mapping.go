package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "indexsearch_products"

// buildIndexMapping returns the JSON mapping for the products index. Field
// names follow the camelCase JSON of domain.Product.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "normalizer": {
        "lowercase_normalizer": {
          "type": "custom",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "analyzer": {
        "product_text": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding", "english_stemmer"]
        }
      },
      "filter": {
        "english_stemmer": {
          "type": "stemmer",
          "language": "light_english"
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":              { "type": "keyword" },
      "title":           { "type": "text", "analyzer": "product_text", "fields": { "keyword": { "type": "keyword", "ignore_above": 512 } } },
      "description":     { "type": "text", "analyzer": "product_text" },
      "price":           { "type": "double" },
      "mrp":             { "type": "double" },
      "currency":        { "type": "keyword" },
      "rating":          { "type": "double" },
      "reviewCount":     { "type": "integer" },
      "stock":           { "type": "integer" },
      "salesCount":      { "type": "integer" },
      "returnRate":      { "type": "double" },
      "complaintsCount": { "type": "integer" },
      "category":        { "type": "keyword", "normalizer": "lowercase_normalizer" },
      "brand":           { "type": "text", "analyzer": "product_text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "metadata":        { "type": "object", "enabled": false },
      "source":          { "type": "keyword" },
      "sourceUrl":       { "type": "keyword", "index": false },
      "images":          { "type": "keyword", "index": false },
      "createdAt":       { "type": "date" },
      "updatedAt":       { "type": "date" }
    }
  }
}`
}
