package port

import "ragqa/internal/domain"

type Chunker interface {
	Chunk(rec domain.Record) []domain.Chunk
}
