package driver

// IndexQueries run once at startup. Memgraph syntax; Neo4j rejects the
// constraint form and logs a warning.
var IndexQueries = []string{
	"CREATE INDEX ON :Product(product_id);",
	"CREATE INDEX ON :Verification(id);",
	"CREATE INDEX ON :Verification(timestamp);",
	"CREATE CONSTRAINT ON (v:Verification) ASSERT v.id IS UNIQUE;",
}

const (
	InsertVerificationQuery = `
		MERGE (p:Product {product_id: $product_id})
		SET p.category = $product_category
		CREATE (v:Verification {
			id: $id,
			timestamp: $timestamp,
			product_id: $product_id,
			product_category: $product_category,
			record: $record
		})
		CREATE (p)-[:VERIFIED_BY]->(v)
		RETURN v.id AS id
	`

	ExistsVerificationQuery = `
		MATCH (v:Verification {id: $id})
		RETURN count(v) AS n
	`

	GetVerificationQuery = `
		MATCH (v:Verification {id: $id})
		RETURN v.record AS record
		LIMIT 1
	`

	ListVerificationsQuery = `
		MATCH (p:Product)-[:VERIFIED_BY]->(v:Verification)
		WHERE ($product_id = '' OR p.product_id = $product_id)
		  AND ($product_category = '' OR v.product_category = $product_category)
		  AND ($from = '' OR v.timestamp >= $from)
		  AND ($to = '' OR v.timestamp <= $to)
		RETURN v.record AS record
		ORDER BY v.timestamp DESC
	`
)
