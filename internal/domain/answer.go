package domain

// CallerContext is the opaque caller identity forwarded by the hosting boundary.
// The pipeline never parses the token; it is authorization context only.
type CallerContext struct {
	Token     string
	RequestID string
}

// Answer is the pipeline's user-facing result: readable text plus the context
// documents that grounded it, ordered by descending final score.
type Answer struct {
	Text          string
	UsedDocuments []RankedDocument
}
