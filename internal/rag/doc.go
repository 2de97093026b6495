// Package rag implements the retrieval-augmented answering pipeline: the
// corpus is split into typed chunks, embedded, stored in pgvector, and
// queried by cosine similarity at answer time. When the embedding provider
// or the store is unavailable the pipeline degrades to a rule-based
// fallback so the assistant always answers.
package rag
